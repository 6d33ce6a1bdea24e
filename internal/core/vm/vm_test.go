package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/types"
)

func TestOneCoin(t *testing.T) {
	_, err := OneCoin(MessageInfo{})
	assert.ErrorIs(t, err, result.IncorrectFunds)

	_, err = OneCoin(MessageInfo{Funds: []types.Coin{types.NewCoin("a", 1), types.NewCoin("b", 1)}})
	assert.ErrorIs(t, err, result.IncorrectFunds)

	c, err := OneCoin(MessageInfo{Funds: []types.Coin{types.NewCoin("a", 0), types.NewCoin("b", 3)}})
	require.NoError(t, err)
	assert.Equal(t, "b", c.Denom)

	info := MessageInfo{Funds: []types.Coin{types.NewCoin("a", 2), types.NewCoin("a", 5)}}
	assert.Equal(t, uint64(7), AmountOf(info, "a").Uint64())
	assert.ErrorIs(t, NoFunds(info), result.IncorrectFunds)
	assert.NoError(t, NoFunds(MessageInfo{}))
}

func TestResponseBuilders(t *testing.T) {
	resp := NewResponse().
		AddAttribute("action", "settle").
		AddEvent(NewEvent("settle").Add("token_id", 7).Add("buyer", "marble1bob"))

	v, ok := resp.Attribute("action")
	require.True(t, ok)
	assert.Equal(t, "settle", v)

	require.Len(t, resp.Events, 1)
	id, ok := resp.Events[0].Get("token_id")
	require.True(t, ok)
	assert.Equal(t, "7", id)
	_, ok = resp.Events[0].Get("missing")
	assert.False(t, ok)
}

func TestSplitVariant(t *testing.T) {
	name, body, err := SplitVariant([]byte(`{"buy":{"token_id":3}}`))
	require.NoError(t, err)
	assert.Equal(t, "buy", name)

	var buy struct {
		TokenID uint64 `json:"token_id"`
	}
	require.NoError(t, DecodeBody(name, body, &buy))
	assert.Equal(t, uint64(3), buy.TokenID)

	assert.ErrorIs(t, DecodeBody(name, []byte(`{"token_id":3,"extra":1}`), &buy), result.InvalidMessage)

	name, body, err = SplitVariant([]byte(`{"get_config":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "get_config", name)
	assert.JSONEq(t, `{}`, string(body))

	_, _, err = SplitVariant([]byte(`{"a":{},"b":{}}`))
	assert.ErrorIs(t, err, result.InvalidMessage)
	_, _, err = SplitVariant([]byte(`"buy"`))
	assert.ErrorIs(t, err, result.InvalidMessage)

	msg, err := Tagged("propose", map[string]int{"token_id": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"propose":{"token_id":1}}`, string(msg))
}
