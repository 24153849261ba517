package components

import (
	"offer-relay/internal/usecase/queries"
	"offer-relay/internal/usecase/shared"

	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewStore,
		func(s *Store) shared.UnitOfWork { return s.UoW },
		func(s *Store) shared.CycleLock { return s.Lock },
	),
)

var QueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewOfferQueries,
	),
)
