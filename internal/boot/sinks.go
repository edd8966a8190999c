package boot

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mgmonteleone/AtlasFleetReport/internal/config"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink/docstore"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink/forward"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink/parquet"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink/sheets"
)

// openSinks opens every enabled sink. Sinks opened before a failure are closed again.
func openSinks(ctx context.Context, cfg *config.Config, scope string, runTime time.Time) (sink.Sink, error) {
	var out sink.Multi

	fail := func(err error) (sink.Sink, error) {
		_ = out.Close(ctx)
		return nil, err
	}

	s := cfg.Sinks

	if s.Sheets.Enabled {
		creds, err := os.ReadFile(s.Sheets.CredentialsFile)
		if err != nil {
			return fail(fmt.Errorf("os.ReadFile: %w", err))
		}

		wb, err := sheets.NewGoogleWorkbook(ctx, creds, s.Sheets.URI)
		if err != nil {
			return fail(fmt.Errorf("sheets.NewGoogleWorkbook: %w", err))
		}

		out = append(out, sheets.New(sheets.Config{Workbook: wb, Title: scope}))
	}

	if s.DocStore.Enabled {
		ds, err := docstore.Connect(ctx, s.DocStore.URI, s.DocStore.Database, scope, runTime)
		if err != nil {
			return fail(fmt.Errorf("docstore.Connect: %w", err))
		}

		out = append(out, ds)
	}

	if s.Parquet.Enabled {
		ps, err := parquet.Create(s.Parquet.Path)
		if err != nil {
			return fail(fmt.Errorf("parquet.Create: %w", err))
		}

		out = append(out, ps)
	}

	if s.Forward.Enabled {
		out = append(out, forward.New(forward.Config{
			Addr:   s.Forward.Addr,
			Method: s.Forward.Method,
			Token:  s.Forward.Token,
		}))
	}

	return out, nil
}

// openStore connects to the document store for reading a stored collection back.
func openStore(ctx context.Context, cfg *config.Config, collection string) (docstore.Finder, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Sinks.DocStore.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo.Connect: %w", err)
	}

	database := cfg.Sinks.DocStore.Database
	if database == "" {
		database = docstore.DefaultDatabase
	}

	return client.Database(database).Collection(collection), client.Disconnect, nil
}
