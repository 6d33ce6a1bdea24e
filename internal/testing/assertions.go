package testing

import (
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/types"
)

// RequireSuccess asserts that a transaction committed and returns its
// result.
func (e *TestEnv) RequireSuccess(res *host.TxResult, err error) *host.TxResult {
	e.t.Helper()
	require.NoError(e.t, err, "expected transaction success")
	require.NotNil(e.t, res)
	return res
}

// RequireCode asserts that a transaction failed with code.
func (e *TestEnv) RequireCode(err error, code result.Code) {
	e.t.Helper()
	require.Error(e.t, err, "expected failure with %s, but transaction succeeded", code)
	require.ErrorIs(e.t, err, code, "expected %s, got %s: %v", code, result.Of(err), err)
}

// RequireBalance asserts a balance.
func (e *TestEnv) RequireBalance(acc *Account, denom string, expected uint64) {
	e.t.Helper()
	actual := e.Balance(acc.Address, types.NativeAsset(denom))
	require.Equal(e.t, expected, actual,
		"account %s balance mismatch: expected %d%s, got %d%s", acc.Name, expected, denom, actual, denom)
}

// RequireEvent asserts that res carries exactly one event of typ and
// returns its attribute values by key.
func (e *TestEnv) RequireEvent(res *host.TxResult, typ string) map[string]string {
	e.t.Helper()
	events := res.EventsOf(typ)
	require.Len(e.t, events, 1, "expected one %s event", typ)
	attrs := make(map[string]string, len(events[0].Attributes))
	for _, a := range events[0].Attributes {
		attrs[a.Key] = a.Value
	}
	return attrs
}
