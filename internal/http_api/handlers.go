package http_api

import (
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/core-coin/walletx/internal/ledger"
	"github.com/core-coin/walletx/pkg/validation"
)

const callerKey = "caller"

// AmountRequest carries a single amount as a base-10 string
type AmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// RegisterWalletRequest represents the JSON body for wallet registration
type RegisterWalletRequest struct {
	Name   string `json:"name"`
	Amount string `json:"amount" binding:"required"`
}

// OnboardMemberRequest represents the JSON body for member onboarding
type OnboardMemberRequest struct {
	Member     string `json:"member" binding:"required"`
	Name       string `json:"name"`
	Amount     string `json:"amount" binding:"required"`
	Identifier uint64 `json:"identifier"`
}

// WithdrawalRequest represents the JSON body for a member withdrawal
type WithdrawalRequest struct {
	Amount   string `json:"amount" binding:"required"`
	Receiver string `json:"receiver" binding:"required"`
}

// MintRequest represents the JSON body for development minting
type MintRequest struct {
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

func caller(c *gin.Context) string {
	return c.GetString(callerKey)
}

// bind parses the JSON body into req and the amount it carries.
func bind(c *gin.Context, req any, raw func() string) (*big.Int, bool) {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}
	amount, err := validation.ParseAmount(raw())
	if err != nil {
		badRequest(c, "Invalid amount: "+err.Error())
		return nil, false
	}
	return amount, true
}

// pathAddress reads and normalizes an address path parameter.
func pathAddress(c *gin.Context) (string, bool) {
	addr, err := validation.ValidateAndNormalizeAddress(c.Param("address"))
	if err != nil {
		badRequest(c, "Invalid address: "+err.Error())
		return "", false
	}
	return addr, true
}

func (s *HTTPServer) registerWallet(c *gin.Context) {
	var req RegisterWalletRequest
	fund, ok := bind(c, &req, func() string { return req.Amount })
	if !ok {
		return
	}

	wallet, err := s.walletx.RegisterWallet(c.Request.Context(), caller(c), req.Name, fund)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": walletView(wallet)})
}

func (s *HTTPServer) getWalletAdmin(c *gin.Context) {
	wallet, err := s.walletx.GetWalletAdmin(caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": walletView(wallet)})
}

func (s *HTTPServer) reimburseWallet(c *gin.Context) {
	var req AmountRequest
	amount, ok := bind(c, &req, func() string { return req.Amount })
	if !ok {
		return
	}

	wallet, err := s.walletx.ReimburseWallet(c.Request.Context(), caller(c), amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": walletView(wallet)})
}

func (s *HTTPServer) getAdminRole(c *gin.Context) {
	addr, ok := pathAddress(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "role": s.walletx.GetAdminRole(addr)})
}

func (s *HTTPServer) onboardMember(c *gin.Context) {
	var req OnboardMemberRequest
	fund, ok := bind(c, &req, func() string { return req.Amount })
	if !ok {
		return
	}
	member, err := validation.ValidateAndNormalizeAddress(req.Member)
	if err != nil {
		s.fail(c, ledger.ErrInvalidMember)
		return
	}
	if err := validation.CheckIdentifier(req.Identifier); err != nil {
		badRequest(c, "Invalid identifier: "+err.Error())
		return
	}

	created, err := s.walletx.OnboardMember(c.Request.Context(), caller(c), member, req.Name, fund, req.Identifier)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "member": memberView(created)})
}

func (s *HTTPServer) reimburseMember(c *gin.Context) {
	identifier, err := cast.ToUint64E(c.Param("identifier"))
	if err == nil {
		err = validation.CheckIdentifier(identifier)
	}
	if err != nil {
		badRequest(c, "Invalid identifier: "+err.Error())
		return
	}
	var req AmountRequest
	amount, ok := bind(c, &req, func() string { return req.Amount })
	if !ok {
		return
	}

	members, err := s.walletx.ReimburseMember(c.Request.Context(), caller(c), identifier, amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "members": memberViews(members)})
}

func (s *HTTPServer) getMembers(c *gin.Context) {
	members, err := s.walletx.GetMembers(caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "members": memberViews(members)})
}

// getMember answers with the caller's member record, or the empty record
// when the caller is not a live member.
func (s *HTTPServer) getMember(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "member": memberView(s.walletx.GetMember(caller(c)))})
}

func (s *HTTPServer) freezeMember(c *gin.Context) {
	member, ok := pathAddress(c)
	if !ok {
		return
	}
	updated, err := s.walletx.FreezeMember(c.Request.Context(), caller(c), member)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "member": memberView(updated)})
}

func (s *HTTPServer) unfreezeMember(c *gin.Context) {
	member, ok := pathAddress(c)
	if !ok {
		return
	}
	updated, err := s.walletx.UnfreezeMember(c.Request.Context(), caller(c), member)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "member": memberView(updated)})
}

func (s *HTTPServer) removeMember(c *gin.Context) {
	member, ok := pathAddress(c)
	if !ok {
		return
	}
	if err := s.walletx.RemoveMember(c.Request.Context(), caller(c), member); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *HTTPServer) memberWithdrawal(c *gin.Context) {
	var req WithdrawalRequest
	amount, ok := bind(c, &req, func() string { return req.Amount })
	if !ok {
		return
	}
	receiver, err := validation.ValidateAndNormalizeAddress(req.Receiver)
	if err != nil {
		s.fail(c, ledger.ErrInvalidReceiver)
		return
	}

	tx, err := s.walletx.MemberWithdrawal(c.Request.Context(), caller(c), amount, receiver)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": transactionView(tx)})
}

func (s *HTTPServer) getMemberTransactions(c *gin.Context) {
	member, ok := pathAddress(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": transactionViews(s.walletx.GetMemberTransactions(member)),
	})
}

func (s *HTTPServer) approve(c *gin.Context) {
	var req AmountRequest
	amount, ok := bind(c, &req, func() string { return req.Amount })
	if !ok {
		return
	}
	if err := s.walletx.Approve(c.Request.Context(), caller(c), amount); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "allowance": amount.String()})
}

func (s *HTTPServer) tokenBalance(c *gin.Context) {
	owner, ok := pathAddress(c)
	if !ok {
		return
	}
	balance, err := s.walletx.TokenBalance(owner)
	if err != nil {
		s.fail(c, err)
		return
	}
	body := gin.H{"success": true, "balance": balance.String()}
	if chainBalance, ok, err := s.walletx.ChainBalance(owner); ok {
		s.addChainAmount(body, "chain_balance", chainBalance, err)
	}
	c.JSON(http.StatusOK, body)
}

func (s *HTTPServer) tokenAllowance(c *gin.Context) {
	owner, ok := pathAddress(c)
	if !ok {
		return
	}
	allowance, err := s.walletx.TokenAllowance(owner)
	if err != nil {
		s.fail(c, err)
		return
	}
	body := gin.H{"success": true, "allowance": allowance.String()}
	if chainAllowance, ok, err := s.walletx.ChainAllowance(owner); ok {
		s.addChainAmount(body, "chain_allowance", chainAllowance, err)
	}
	c.JSON(http.StatusOK, body)
}

// addChainAmount reports a blockchain read next to the ledger token figure.
// A failed read is reported in chain_error without failing the request.
func (s *HTTPServer) addChainAmount(body gin.H, key string, amount *big.Int, err error) {
	if err != nil {
		s.logger.Warn("Blockchain read failed", "field", key, "error", err)
		body["chain_error"] = err.Error()
		return
	}
	body[key] = decimal(amount)
}

func (s *HTTPServer) mint(c *gin.Context) {
	var req MintRequest
	amount, ok := bind(c, &req, func() string { return req.Amount })
	if !ok {
		return
	}
	to, err := validation.ValidateAndNormalizeAddress(req.To)
	if err != nil {
		badRequest(c, "Invalid address: "+err.Error())
		return
	}
	if err := s.walletx.Mint(c.Request.Context(), to, amount); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *HTTPServer) tokenInfo(c *gin.Context) {
	info, ok := s.walletx.TokenInfo()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Token metadata not available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": info})
}

func (s *HTTPServer) custody(c *gin.Context) {
	report := s.walletx.Custody()
	if report == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Custody not reconciled yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "custody": custodyView(report)})
}
