package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Identity 注册用户
// 对应数据库表: identities
type Identity struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NationalID   string    `gorm:"uniqueIndex;type:varchar(11);not null" json:"national_id"`
	FirstName    string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Email        string    `gorm:"uniqueIndex;type:varchar(120);not null" json:"email"`
	Phone        string    `gorm:"type:varchar(15);not null" json:"phone"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Identity) TableName() string {
	return "identities"
}

// FullName 卡面上的持卡人姓名
func (i *Identity) FullName() string {
	return i.FirstName + " " + i.LastName
}

// Account 资金账户实体
// 对应数据库表: accounts
type Account struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountNumber string          `gorm:"uniqueIndex;type:varchar(16);not null" json:"account_number"`
	IdentityID    int64           `gorm:"not null;index" json:"identity_id"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance"`
	Kind          AccountKind     `gorm:"type:varchar(20);not null" json:"kind"`
	Version       int64           `gorm:"not null" json:"-"` // 乐观锁
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// Transaction 资金流水，写入后不可修改
// 对应数据库表: transactions
type Transaction struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SourceAccountID      int64           `gorm:"not null;index" json:"source_account_id"`
	DestinationAccountID int64           `gorm:"not null;index" json:"destination_account_id"`
	Amount               decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"` // 必须 > 0
	Description          string          `gorm:"type:varchar(200)" json:"description"`
	Kind                 TransactionKind `gorm:"type:varchar(20);not null" json:"kind"`
	PostedAt             time.Time       `gorm:"not null;index" json:"posted_at"`
	CreatedAt            time.Time       `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Card 银行卡
// 对应数据库表: cards
type Card struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CardNumber   string          `gorm:"uniqueIndex;type:varchar(16);not null" json:"card_number"`
	IdentityID   int64           `gorm:"not null;index" json:"identity_id"`
	AccountID    int64           `gorm:"not null;index" json:"account_id"`
	Kind         CardKind        `gorm:"type:varchar(20);not null" json:"kind"`
	Expiry       string          `gorm:"type:varchar(5);not null" json:"expiry"` // MM/YY
	SecurityCode string          `gorm:"type:varchar(3);not null" json:"security_code"`
	HolderName   string          `gorm:"type:varchar(100);not null" json:"holder_name"`
	CreditLimit  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"credit_limit"`
	Status       Status          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (Card) TableName() string {
	return "cards"
}

// InvestmentAccount 投资账户汇总
// 对应数据库表: investment_accounts
type InvestmentAccount struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountNumber string          `gorm:"uniqueIndex;type:varchar(16);not null" json:"account_number"`
	IdentityID    int64           `gorm:"not null;index" json:"identity_id"`
	Kind          string          `gorm:"type:varchar(50);not null" json:"kind"`
	TotalBalance  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_balance"`
	ProfitLoss    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"profit_loss"`
	Status        Status          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (InvestmentAccount) TableName() string {
	return "investment_accounts"
}

// Models 返回需要迁移的全部实体
func Models() []interface{} {
	return []interface{}{
		&Identity{},
		&Account{},
		&Transaction{},
		&Card{},
		&InvestmentAccount{},
	}
}
