package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/threespace/site-backend/internal/config"
	"github.com/threespace/site-backend/internal/database"
	"github.com/threespace/site-backend/internal/models"
	"github.com/threespace/site-backend/internal/resource"
	"github.com/threespace/site-backend/internal/resource/repository"
	"github.com/threespace/site-backend/internal/storage"
	"github.com/threespace/site-backend/internal/verification"
	"github.com/threespace/site-backend/pkg/logger"
)

// App is what the commands operate on. The real one is backed by MongoDB.
type App struct {
	Repo      func(resource.Descriptor) repository.Repository
	Tokens    verification.Repository
	Indexes   func(ctx context.Context) error
	Presigner func(ctx context.Context, key string, expires time.Duration) (string, error)
	Close     func()
}

// Connector opens the App for one command invocation.
type Connector func(ctx context.Context) (*App, error)

var jsonOutput bool

// NewRootCmd builds the command tree around connect.
func NewRootCmd(connect Connector, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "sitectl",
		Short: "Maintenance commands for the site API database",
		Long: `sitectl talks to the same MongoDB (and MinIO, when configured) as the
site API, using the same environment variables.

Examples:
  sitectl indexes                      # create collection indexes
  sitectl list blogs --all --limit 5   # newest five blog posts, inactive included
  sitectl toggle careers 665f...       # flip a career posting's isActive flag
  sitectl purge-tokens                 # drop expired verification records
  sitectl presign 1714550400000-1.png  # temporary download URL (MinIO only)`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(
		newIndexesCmd(connect),
		newListCmd(connect),
		newCountCmd(connect),
		newToggleCmd(connect),
		newPurgeTokensCmd(connect),
		newPresignCmd(connect),
	)
	return root
}

// Execute runs the root command against the configured database.
func Execute() {
	if err := NewRootCmd(MongoConnector, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// MongoConnector loads configuration and connects to MongoDB.
func MongoConnector(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log.Level)
	if err := cfg.RequireMongo(); err != nil {
		return nil, err
	}
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB.Database)
	tokens := verification.NewMongoRepository(db.Collection("verifications"))

	app := &App{
		Repo: func(d resource.Descriptor) repository.Repository {
			return repository.NewMongoRepo(db.Collection(d.Collection), d)
		},
		Tokens: tokens,
		Indexes: func(ctx context.Context) error {
			for _, d := range models.All() {
				if err := repository.NewMongoRepo(db.Collection(d.Collection), d).EnsureIndexes(ctx); err != nil {
					return fmt.Errorf("%s: %w", d.Collection, err)
				}
			}
			return tokens.EnsureIndexes(ctx)
		},
		Close: func() { _ = client.Disconnect(context.Background()) },
	}
	if cfg.Uploads.Backend == "minio" {
		m, err := storage.NewMinIOStorage(&cfg.MinIO)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Presigner = m.PresignedURL
	}
	return app, nil
}

// descriptor resolves a resource by collection name ("blogs", "contacts", ...).
func descriptor(name string) (resource.Descriptor, error) {
	for _, d := range models.All() {
		if d.Collection == name {
			return d, nil
		}
	}
	return resource.Descriptor{}, fmt.Errorf("unknown resource %q (want blogs, careers, products or contacts)", name)
}

// withApp connects, runs fn and releases the connection.
func withApp(cmd *cobra.Command, connect Connector, fn func(ctx context.Context, a *App) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	a, err := connect(ctx)
	if err != nil {
		return err
	}
	if a.Close != nil {
		defer a.Close()
	}
	return fn(ctx, a)
}

var errNoPresign = errors.New("presigned URLs need UPLOADS_BACKEND=minio")
