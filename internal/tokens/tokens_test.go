package tokens

import (
	"context"
	"errors"
	"testing"

	"github.com/aman-zulfiqar/solswap/internal/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRaw(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		want     string
		wantErr  bool
	}{
		{name: "sol hundredth", amount: "0.01", decimals: 9, want: "10000000"},
		{name: "usdc whole", amount: "25", decimals: 6, want: "25000000"},
		{name: "trims spaces", amount: " 1.5 ", decimals: 6, want: "1500000"},
		{name: "rounds half up", amount: "0.0000005", decimals: 6, want: "1"},
		{name: "rounds to zero", amount: "0.0000001", decimals: 6, wantErr: true},
		{name: "zero", amount: "0", decimals: 9, wantErr: true},
		{name: "negative", amount: "-1", decimals: 9, wantErr: true},
		{name: "not a number", amount: "abc", decimals: 9, wantErr: true},
		{name: "empty", amount: "", decimals: 9, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToRaw(tt.amount, tt.decimals)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromRawAndFormat(t *testing.T) {
	d, err := FromRaw("1500000", USDC.Decimals)
	require.NoError(t, err)
	assert.Equal(t, "1.5", FormatAmount(d, USDC.Decimals))

	d, err = FromRaw("123456789", 9)
	require.NoError(t, err)
	assert.Equal(t, "0.123457", FormatAmount(d, 9))

	d, err = FromRaw("12345", BONK.Decimals)
	require.NoError(t, err)
	assert.Equal(t, "0.12345", FormatAmount(d, BONK.Decimals))

	_, err = FromRaw("1.5", 6)
	assert.Error(t, err)
	_, err = FromRaw("", 6)
	assert.Error(t, err)
}

func TestMaxSpendable(t *testing.T) {
	assert.Equal(t, "1.99", MaxSpendable(SOL, decimal.RequireFromString("2")).String())
	assert.True(t, MaxSpendable(SOL, decimal.RequireFromString("0.005")).IsZero())
	assert.Equal(t, "42", MaxSpendable(USDC, decimal.RequireFromString("42")).String())
	assert.True(t, MaxSpendable(USDC, decimal.Zero).IsZero())
}

func TestRegistry(t *testing.T) {
	tok, ok := Lookup(NativeMint)
	require.True(t, ok)
	assert.Equal(t, "SOL", tok.Symbol)
	assert.True(t, tok.IsNative())

	tok, ok = BySymbol("usdc")
	require.True(t, ok)
	assert.Equal(t, int32(6), tok.Decimals)

	addrs := PopularAddresses()
	require.Len(t, addrs, len(Popular))
	assert.Equal(t, NativeMint, addrs[0])
	assert.Equal(t, USDC.Address, addrs[1])
}

type fakeSupply struct {
	calls    int
	decimals int
	err      error
}

func (f *fakeSupply) GetTokenSupply(ctx context.Context, mint string) (*rpc.TokenAmount, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.TokenAmount{Amount: "1000", Decimals: f.decimals}, nil
}

func TestResolver(t *testing.T) {
	const mew = "MEW1gQWJ3nEXg2qgERiKu7FAFj79PHvQVREQUzScPP5"

	t.Run("registry hit skips rpc", func(t *testing.T) {
		f := &fakeSupply{}
		tok, err := NewResolver(f, nil).Resolve(context.Background(), USDC.Address)
		require.NoError(t, err)
		assert.Equal(t, USDC, tok)
		assert.Zero(t, f.calls)
	})

	t.Run("unknown mint resolved once then cached", func(t *testing.T) {
		f := &fakeSupply{decimals: 5}
		r := NewResolver(f, nil)
		tok, err := r.Resolve(context.Background(), mew)
		require.NoError(t, err)
		assert.Equal(t, int32(5), tok.Decimals)

		_, err = r.Resolve(context.Background(), mew)
		require.NoError(t, err)
		assert.Equal(t, 1, f.calls)
	})

	t.Run("registered metadata wins", func(t *testing.T) {
		f := &fakeSupply{decimals: 5}
		r := NewResolver(f, nil)
		r.Register(Token{Address: mew, Symbol: "MEW", Name: "cat in a dogs world", Decimals: 5})
		tok, err := r.Resolve(context.Background(), mew)
		require.NoError(t, err)
		assert.Equal(t, "MEW", tok.Symbol)
		assert.Zero(t, f.calls)
	})

	t.Run("bad address", func(t *testing.T) {
		_, err := NewResolver(&fakeSupply{}, nil).Resolve(context.Background(), "0xdeadbeef")
		assert.Error(t, err)
	})

	t.Run("rpc failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewResolver(&fakeSupply{err: boom}, nil).Resolve(context.Background(), mew)
		assert.ErrorIs(t, err, boom)
	})
}
