package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 所有仓储方法都显式接收 db 句柄：
// 在事务 (Unit of Work) 内传入 tx，普通查询传入根连接。

// IdentityRepository 用户仓储接口
type IdentityRepository interface {
	Create(ctx context.Context, db *gorm.DB, identity *Identity) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Identity, error)
	FindByNationalID(ctx context.Context, db *gorm.DB, nationalID string) (*Identity, error)
	ExistsByNationalID(ctx context.Context, db *gorm.DB, nationalID string) (bool, error)
	ExistsByEmail(ctx context.Context, db *gorm.DB, email string) (bool, error)
	ListIDs(ctx context.Context, db *gorm.DB) ([]int64, error)
}

// AccountRepository 定义账户仓储接口
// 这是一个 Port (端口)，Adapter (适配器) 将在基础设施层实现它
type AccountRepository interface {
	Create(ctx context.Context, db *gorm.DB, account *Account) error

	// FindByID 根据ID查询账户
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Account, error)

	// FindByNumber 根据对外账号查询 (用于转账时查找收款方)
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Account, error)

	// FirstByKind 返回用户某类型的第一个账户 (按 id 升序)
	FirstByKind(ctx context.Context, db *gorm.DB, identityID int64, kind AccountKind) (*Account, error)

	ListByIdentity(ctx context.Context, db *gorm.DB, identityID int64) ([]Account, error)
	ExistsByNumber(ctx context.Context, db *gorm.DB, number string) (bool, error)

	// UpdateBalance 核心：写入新余额 (带乐观锁版本号)
	// version 不匹配时返回 ErrStaleVersion
	UpdateBalance(ctx context.Context, db *gorm.DB, id int64, balance decimal.Decimal, version int64) error
}

// TransactionRepository 定义交易仓储接口
type TransactionRepository interface {
	Create(ctx context.Context, db *gorm.DB, tx *Transaction) error

	// ListByAccounts 返回涉及任一账户的流水，按 posted_at 倒序；limit <= 0 表示不限
	ListByAccounts(ctx context.Context, db *gorm.DB, accountIDs []int64, limit int) ([]Transaction, error)
}

// CardRepository 卡片仓储接口
type CardRepository interface {
	Create(ctx context.Context, db *gorm.DB, card *Card) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Card, error)
	ExistsByNumber(ctx context.Context, db *gorm.DB, number string) (bool, error)
	ListByIdentity(ctx context.Context, db *gorm.DB, identityID int64, activeOnly bool) ([]Card, error)
}

// InvestmentRepository 投资账户仓储接口
type InvestmentRepository interface {
	Create(ctx context.Context, db *gorm.DB, account *InvestmentAccount) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*InvestmentAccount, error)
	ExistsByNumber(ctx context.Context, db *gorm.DB, number string) (bool, error)
	ListByIdentity(ctx context.Context, db *gorm.DB, identityID int64, activeOnly bool) ([]InvestmentAccount, error)
}
