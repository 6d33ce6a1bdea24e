package mocks

//go:generate mockgen -destination=pool_querier.go -package=mocks github.com/LeJamon/goMarble/internal/core/swap PoolQuerier
//go:generate mockgen -destination=querier.go -package=mocks github.com/LeJamon/goMarble/internal/core/vm Querier
