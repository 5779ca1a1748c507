//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"linkcamp/internal/auth"
	"linkcamp/internal/comment"
	"linkcamp/internal/common"
	"linkcamp/internal/dbmongo"
	"linkcamp/internal/feed"
	"linkcamp/internal/media"
	"linkcamp/internal/metrics"
	"linkcamp/internal/moderation"
	"linkcamp/internal/realtime"
	"linkcamp/internal/server"
	"linkcamp/internal/user"
	"linkcamp/internal/vote"
)

var storeSet = wire.NewSet(
	ProvideMongo,
	ProvideDatabaseConnection,
	ProvidePhotoStore,
	wire.Bind(new(common.PhotoUploader), new(*dbmongo.PhotoStore)),
	wire.Bind(new(media.PhotoSource), new(*dbmongo.PhotoStore)),
)

var authSet = wire.NewSet(
	ProvideJWTManager,
	auth.NewVerifier,
	ProvideProfileFinder,
	auth.NewAuthenticator,
)

var realtimeSet = wire.NewSet(
	realtime.NewHub,
	ProvidePublisher,
	ProvideRealtimeHandler,
)

var domainSet = wire.NewSet(
	user.NewProfileRepository,
	user.NewService,
	feed.NewRepository,
	feed.NewLocator,
	feed.NewService,
	vote.NewRepository,
	vote.NewService,
	ProvideCountCache,
	comment.NewRepository,
	comment.NewService,
	moderation.NewRepository,
	moderation.NewService,
	ProvideCleaners,
	wire.Bind(new(vote.PostLocator), new(*feed.Locator)),
	wire.Bind(new(comment.PostLocator), new(*feed.Locator)),
	wire.Bind(new(feed.AuthorLookup), new(user.Service)),
	wire.Bind(new(comment.AuthorLookup), new(user.Service)),
	wire.Bind(new(comment.ReportCleaner), new(moderation.Repository)),
	wire.Bind(new(moderation.AuthorLookup), new(user.Service)),
	wire.Bind(new(moderation.Posts), new(feed.Service)),
	wire.Bind(new(moderation.Comments), new(comment.Service)),
)

var httpSet = wire.NewSet(
	ProvideUserHandler,
	ProvideFeedHandler,
	vote.NewHandler,
	comment.NewHandler,
	moderation.NewHandler,
	media.NewHandler,
	ProvideRoutes,
	ProvideHealthServer,
	ProvideSentry,
	ProvideRouter,
	server.New,
)

func InitializeApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideLogger,
		metrics.New,
		storeSet,
		authSet,
		realtimeSet,
		domainSet,
		httpSet,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil, nil
}
