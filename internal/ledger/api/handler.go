package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xxz807/betikbank/internal/ledger/domain"
	"github.com/xxz807/betikbank/internal/ledger/service"
	"github.com/xxz807/betikbank/internal/platform/auth"
)

// defaultListLimit 流水列表未指定 limit 时的条数
const defaultListLimit = 50

// Services 处理器依赖的业务服务
type Services struct {
	Identities *service.IdentityService
	Accounts   *service.AccountService
	Ledger     *service.LedgerService
	Cards      *service.CardService
}

type Handler struct {
	svc    Services
	issuer *auth.TokenIssuer
	logger *zap.Logger
}

func NewHandler(svc Services, issuer *auth.TokenIssuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, issuer: issuer, logger: logger}
}

// RegisterRoutes 注册路由
// public 无需登录；protected 已挂载 Bearer 鉴权中间件
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	authGroup := public.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	protected.GET("/me", h.Me)
	protected.GET("/dashboard", h.Dashboard)

	protected.GET("/accounts", h.ListAccounts)
	protected.GET("/accounts/:id", h.GetAccount)
	protected.GET("/accounts/:id/transactions", h.AccountTransactions)
	protected.GET("/transactions", h.RecentTransactions)
	protected.POST("/transfers", h.Transfer)

	protected.GET("/cards", h.ListCards)
	protected.POST("/cards", h.IssueCard)
	protected.GET("/cards/:id", h.GetCard)

	protected.GET("/investments", h.ListInvestments)
	protected.POST("/investments", h.OpenInvestment)
	protected.GET("/investments/:id", h.GetInvestment)
}

// Register 注册
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	identity, err := h.svc.Identities.Register(c.Request.Context(), service.RegisterRequest{
		NationalID:      req.NationalID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, identity)
}

// Login 登录，返回签名令牌
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	identity, err := h.svc.Identities.Authenticate(c.Request.Context(), req.NationalID, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, err := h.issuer.Generate(identity.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResp{
		Token:     token,
		ExpiresIn: int64(h.issuer.TTL().Seconds()),
		Identity:  identity,
	})
}

// Me GET /api/v1/me
func (h *Handler) Me(c *gin.Context) {
	identity, err := h.svc.Identities.GetIdentity(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// Dashboard GET /api/v1/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	dash, err := h.svc.Accounts.Dashboard(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.svc.Accounts.ListAccounts(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *Handler) GetAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	account, err := h.svc.Accounts.GetAccount(c.Request.Context(), caller(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// AccountTransactions GET /api/v1/accounts/:id/transactions?limit=
func (h *Handler) AccountTransactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	txs, err := h.svc.Ledger.ListTransactions(c.Request.Context(), caller(c), id, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// RecentTransactions GET /api/v1/transactions?limit=
func (h *Handler) RecentTransactions(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	txs, err := h.svc.Ledger.RecentTransactions(c.Request.Context(), caller(c), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// Transfer 转账接口
// POST /api/v1/transfers
func (h *Handler) Transfer(c *gin.Context) {
	var req TransferReq

	// 1. 参数绑定与基础校验
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		badRequest(c, "Invalid amount format")
		return
	}

	// 2. 调用业务逻辑
	tx, err := h.svc.Ledger.Transfer(c.Request.Context(), service.TransferRequest{
		IdentityID:               caller(c),
		SourceAccountID:          req.SourceAccountID,
		DestinationAccountNumber: req.DestinationAccountNumber,
		Amount:                   amount,
		Description:              req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	// 3. 返回成功响应
	c.JSON(http.StatusCreated, tx)
}

func (h *Handler) ListCards(c *gin.Context) {
	cards, err := h.svc.Cards.ListCards(c.Request.Context(), caller(c), c.Query("active") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

// IssueCard POST /api/v1/cards
func (h *Handler) IssueCard(c *gin.Context) {
	var req IssueCardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	svcReq := service.IssueCardRequest{
		IdentityID: caller(c),
		AccountID:  req.AccountID,
		Kind:       domain.CardKind(req.Kind),
	}
	if req.CreditLimit != nil {
		limit, err := decimal.NewFromString(*req.CreditLimit)
		if err != nil {
			badRequest(c, "Invalid credit_limit format")
			return
		}
		svcReq.CreditLimit = &limit
	}

	card, err := h.svc.Cards.IssueCard(c.Request.Context(), svcReq)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *Handler) GetCard(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	card, err := h.svc.Cards.GetCard(c.Request.Context(), caller(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) ListInvestments(c *gin.Context) {
	list, err := h.svc.Accounts.ListInvestmentAccounts(c.Request.Context(), caller(c), c.Query("active") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// OpenInvestment POST /api/v1/investments
func (h *Handler) OpenInvestment(c *gin.Context) {
	var req OpenInvestmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	amount := decimal.Zero
	if req.InitialAmount != "" {
		var err error
		if amount, err = decimal.NewFromString(req.InitialAmount); err != nil {
			badRequest(c, "Invalid initial_amount format")
			return
		}
	}

	inv, funding, err := h.svc.Ledger.FundInvestment(c.Request.Context(), caller(c), req.Kind, amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, OpenInvestmentResp{InvestmentAccount: inv, Funding: funding})
}

func (h *Handler) GetInvestment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	inv, err := h.svc.Accounts.GetInvestmentAccount(c.Request.Context(), caller(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// caller 鉴权中间件已保证 id 存在
func caller(c *gin.Context) int64 {
	id, _ := auth.IdentityID(c)
	return id
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid id")
		return 0, false
	}
	return id, true
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		badRequest(c, "Invalid limit")
		return 0, false
	}
	return limit, true
}
