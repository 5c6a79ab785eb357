package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"payout_system/internal/ledger"
	"payout_system/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// Client mistakes map to 400, missing accounts to 404, everything the client
// cannot fix to 500.
func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &service.ValidationError{Msg: "bad input"}, want: http.StatusBadRequest},
		{name: "insufficient funds", err: ledger.ErrInsufficientFunds, want: http.StatusBadRequest},
		{name: "invalid amount", err: ledger.ErrInvalidAmount, want: http.StatusBadRequest},
		{name: "provider rejected", err: &service.ProviderRejectedError{Reason: "x"}, want: http.StatusBadRequest},
		{name: "duplicate request", err: service.ErrDuplicateRequest, want: http.StatusBadRequest},
		{name: "user not found", err: ledger.ErrUserNotFound, want: http.StatusNotFound},
		{name: "conflict", err: ledger.ErrConflict, want: http.StatusInternalServerError},
		{name: "transport", err: service.ErrTransport, want: http.StatusInternalServerError},
		{name: "reconciliation", err: service.ErrReconciliation, want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)
			require.Equal(t, tc.want, w.Code)
		})
	}
}
