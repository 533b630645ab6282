package api

import (
	"github.com/xxz807/betikbank/internal/ledger/domain"
)

// RegisterReq 注册请求
type RegisterReq struct {
	NationalID      string `json:"national_id" binding:"required"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Phone           string `json:"phone" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

type LoginReq struct {
	NationalID string `json:"national_id" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type LoginResp struct {
	Token     string           `json:"token"`
	ExpiresIn int64            `json:"expires_in"` // 秒
	Identity  *domain.Identity `json:"identity"`
}

// TransferReq 转账请求，金额必须传字符串
type TransferReq struct {
	SourceAccountID          int64  `json:"source_account_id" binding:"required"`
	DestinationAccountNumber string `json:"destination_account_number" binding:"required"`
	Amount                   string `json:"amount" binding:"required"`
	Description              string `json:"description"`
}

// IssueCardReq credit_limit 仅对信用卡生效，省略时取默认额度
type IssueCardReq struct {
	AccountID   int64   `json:"account_id" binding:"required"`
	Kind        string  `json:"kind" binding:"required"`
	CreditLimit *string `json:"credit_limit"`
}

// OpenInvestmentReq initial_amount 省略视为 0
type OpenInvestmentReq struct {
	Kind          string `json:"kind" binding:"required"`
	InitialAmount string `json:"initial_amount"`
}

type OpenInvestmentResp struct {
	InvestmentAccount *domain.InvestmentAccount `json:"investment_account"`
	Funding           *domain.Transaction       `json:"funding,omitempty"`
}

// ErrorResp 统一错误响应
type ErrorResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
