package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beerzone-pos/internal/ledger"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/realtime"
	"beerzone-pos/internal/repository"
)

type fixture struct {
	store  *repository.SQLStore
	ledger *ledger.Ledger
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := repository.Open(context.Background(), "sqlite", ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	kv := realtime.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })

	return fixture{store: store, ledger: ledger.New(kv, nil)}
}

func (f fixture) addProduct(t *testing.T, name, price, code string) model.Product {
	t.Helper()
	p, err := model.NewProduct(name, decimal.RequireFromString(price), code, "")
	require.NoError(t, err)
	p, err = f.store.CreateProduct(context.Background(), p)
	require.NoError(t, err)
	return p
}
