package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"candlux/internal/model"
	"candlux/internal/service"
)

// AccountHandler serves the admin area.
type AccountHandler struct {
	accountService service.AccountService
	mailService    service.MailService
	log            *zap.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accountService service.AccountService, mailService service.MailService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{accountService: accountService, mailService: mailService, log: log}
}

// AccountsResponse lists accounts.
type AccountsResponse struct {
	Accounts []model.Account `json:"accounts"`
}

// TestMailRequest optionally overrides the recipient.
type TestMailRequest struct {
	To string `json:"to" validate:"omitempty,email"`
}

// TestMailResponse reports where the test mail went.
type TestMailResponse struct {
	Success bool   `json:"success"`
	To      string `json:"to"`
}

// OnlyAdmin godoc
// @Summary Admin greeting
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/onlyadmin [get]
func (h *AccountHandler) OnlyAdmin(c echo.Context) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: "Welcome admin"})
}

// ListAccounts godoc
// @Summary List accounts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/accounts [get]
func (h *AccountHandler) ListAccounts(c echo.Context) error {
	accounts, err := h.accountService.ListAccounts(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, AccountsResponse{Accounts: accounts})
}

// GetAccount godoc
// @Summary Get account
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} model.Account
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/accounts/{id} [get]
func (h *AccountHandler) GetAccount(c echo.Context) error {
	account, err := h.accountService.GetAccount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, account)
}

// TestMail godoc
// @Summary Send a test email
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TestMailRequest false "Recipient"
// @Success 200 {object} TestMailResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/test-mail [post]
func (h *AccountHandler) TestMail(c echo.Context) error {
	var req TestMailRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return invalidBody()
		}
		if err := c.Validate(&req); err != nil {
			return respondError(c, h.log, validationFailed(err, "to is required"))
		}
	}

	to, err := h.mailService.SendTest(c.Request().Context(), req.To)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, TestMailResponse{Success: true, To: to})
}
