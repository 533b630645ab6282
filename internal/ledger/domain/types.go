package domain

// AccountKind 账户类型
type AccountKind string

const (
	// Checking 活期账户 (注册时自动开立)
	Checking AccountKind = "Vadesiz"
	// TimeDeposit 定期账户
	TimeDeposit AccountKind = "Vadeli"
)

// TransactionKind 交易类型
type TransactionKind string

const (
	KindTransfer          TransactionKind = "Transfer"
	KindInvestmentFunding TransactionKind = "InvestmentFunding"
	// KindDeposit 只由测试充值脚本写入
	KindDeposit TransactionKind = "Deposit"
)

// CardKind 卡片类型
type CardKind string

const (
	CreditCard  CardKind = "CreditCard"
	DebitCard   CardKind = "DebitCard"
	VirtualCard CardKind = "VirtualCard"
)

// IsValid 校验卡片类型合法性
func (k CardKind) IsValid() bool {
	return k == CreditCard || k == DebitCard || k == VirtualCard
}

// Status 卡片 / 投资账户状态
type Status string

const (
	StatusActive    Status = "Active"
	StatusInactive  Status = "Inactive"
	StatusCancelled Status = "Cancelled"
)
