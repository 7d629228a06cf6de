package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vultisig/tx-signer/internal/evm"
	"github.com/vultisig/tx-signer/internal/flow"
	"github.com/vultisig/tx-signer/internal/util"
)

const nativeDecimals = 18

type stepView struct {
	Title string `json:"title"`
	To    string `json:"to"`
	Value string `json:"value"`
	Call  string `json:"call"`
}

type sessionView struct {
	ID              string      `json:"id"`
	Status          flow.Status `json:"status"`
	Address         string      `json:"address,omitempty"`
	ShortAddress    string      `json:"short_address,omitempty"`
	Logs            []string    `json:"logs"`
	Attempts        int         `json:"attempts"`
	HasTransactions bool        `json:"has_transactions"`
	HasApprove      bool        `json:"has_approve"`
	ConnectMode     bool        `json:"connect_mode"`
	Steps           []stepView  `json:"steps"`
}

type submitRequest struct {
	Mode string `json:"mode"`
}

func newSessionView(ps *PageSession) sessionView {
	v := sessionView{
		ID:          ps.ID,
		Status:      ps.State.Status(),
		Logs:        ps.State.Logs(),
		Attempts:    ps.State.Attempts(),
		ConnectMode: ps.Params.ConnectOnly(),
		Steps:       []stepView{},
	}
	if w := ps.Wallet(); w != nil {
		v.Address = w.Address.Hex()
		v.ShortAddress = w.ShortAddress()
	}
	if ps.Set != nil {
		v.HasTransactions = true
		v.HasApprove = ps.Set.HasApprove()
		v.Steps = append(v.Steps, stepView{
			Title: "Swap",
			To:    ps.Set.Swap.To.Hex(),
			Value: util.FromBaseUnits(ps.Set.Swap.ValueOrZero(), nativeDecimals),
			Call:  evm.DescribeCall(ps.Set.Swap.Data),
		})
		if ps.Set.Approve != nil {
			v.Steps = append(v.Steps, stepView{
				Title: "Approve",
				To:    ps.Set.Approve.To.Hex(),
				Value: "0",
				Call:  evm.DescribeCall(ps.Set.Approve.Data),
			})
		}
	}
	return v
}

func errorJSON(c echo.Context, code int, err error) error {
	return c.JSON(code, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, flow.ErrNotConnected), errors.Is(err, flow.ErrNoTransactionData):
		return http.StatusBadRequest
	case errors.Is(err, flow.ErrInProgress), errors.Is(err, flow.ErrAlreadyComplete):
		return http.StatusConflict
	case errors.Is(err, flow.ErrConnectorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) session(c echo.Context) (*PageSession, error) {
	ps, ok := s.store.Get(c.Param("id"))
	if !ok {
		return nil, errorJSON(c, http.StatusNotFound, errors.New("session not found"))
	}
	return ps, nil
}

func (s *Server) handlePage(c echo.Context) error {
	ps := s.store.Create(c.QueryParams())
	if ps.ParseErr != nil {
		s.logger.WithField("session", ps.ID).WithError(ps.ParseErr).Info("page opened without transactions")
	}
	return c.Render(http.StatusOK, pageTemplate, newSessionView(ps))
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSession(c echo.Context) error {
	ps, err := s.session(c)
	if ps == nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionView(ps))
}

func (s *Server) handleConnect(c echo.Context) error {
	ps, err := s.session(c)
	if ps == nil {
		return err
	}

	if ps.Wallet() == nil {
		w, err := s.runner.Connect(c.Request().Context(), ps.State, s.wallets())
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}
		ps.setWallet(w)
	}
	return c.JSON(http.StatusOK, newSessionView(ps))
}

func (s *Server) handleSubmit(c echo.Context) error {
	ps, err := s.session(c)
	if ps == nil {
		return err
	}

	var req submitRequest
	err = c.Bind(&req)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, errors.New("invalid request body"))
	}
	if req.Mode == "" {
		req.Mode = flow.ModeMainnet
	}
	switch req.Mode {
	case flow.ModeMainnet, flow.ModeTestnet, flow.ModeDemo:
	default:
		return errorJSON(c, http.StatusBadRequest, errors.New("unknown mode: "+req.Mode))
	}

	// Precondition failures return before any network call, so they run inline and the caller
	// gets the error directly.
	if ps.Set == nil || ps.Wallet() == nil {
		err = s.dispatch(c.Request().Context(), ps, req.Mode)
		return errorJSON(c, statusFor(err), err)
	}

	switch ps.State.Status() {
	case flow.StatusSigning:
		return errorJSON(c, http.StatusConflict, flow.ErrInProgress)
	case flow.StatusSuccess:
		return errorJSON(c, http.StatusConflict, flow.ErrAlreadyComplete)
	}

	s.submitAsync(ps, req.Mode)
	return c.JSON(http.StatusAccepted, newSessionView(ps))
}
