package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"workorder-rag/internal/config"
	"workorder-rag/internal/helper"
	"workorder-rag/internal/models"
)

// Store persists generated work orders.
type Store interface {
	// Save stores order and, once stored, fills in its id and creation time
	// when missing.
	Save(ctx context.Context, order *models.WorkOrder) (string, error)
	Get(ctx context.Context, id string) (*models.WorkOrder, error)
	List(ctx context.Context) ([]models.WorkOrder, error)
	Close() error
}

// NewStore opens the backend selected in cfg.
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		sqldb, err := ConnectDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		bunDB := NewDB(sqldb, cfg.Database.Debug)
		if err := InitDB(ctx, bunDB); err != nil {
			bunDB.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return NewPostgres(bunDB), nil
	case config.BackendFile:
		return NewFile(cfg.Storage.FilePath), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

type WorkOrderRecord struct {
	bun.BaseModel `bun:"table:work_orders,alias:wo"`
	ID            string            `bun:"id,pk,type:uuid"`
	CreatedAt     time.Time         `bun:"created_at,notnull"`
	Priority      string            `bun:"priority"`
	Order         *models.WorkOrder `bun:"work_order,type:jsonb,notnull"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the configured driver. Both speak to the same schema.
func ConnectDB(dbConfig *config.DatabaseConfig) (*sql.DB, error) {
	switch dbConfig.Driver {
	case config.DriverPQ:
		sqldb, err := sql.Open("postgres", dbConfig.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return sqldb, nil
	case config.DriverPG, "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dbConfig.DSN))), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dbConfig.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*WorkOrderRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

// drop table work_orders

func DropWorkOrders(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*WorkOrderRecord)(nil)).IfExists().Exec(ctx)
	return err
}

// Postgres keeps each work order as one jsonb row.
type Postgres struct {
	db *bun.DB
}

func NewPostgres(db *bun.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Save(ctx context.Context, order *models.WorkOrder) (string, error) {
	stored, err := stamp(order)
	if err != nil {
		return "", err
	}
	rec := &WorkOrderRecord{
		ID:        stored.ID,
		CreatedAt: stored.CreatedAt,
		Priority:  string(stored.HighestPriority()),
		Order:     stored,
	}
	err = p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(rec).Exec(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to store work order: %w", err)
	}
	order.ID, order.CreatedAt = stored.ID, stored.CreatedAt
	log.Info().Str("id", order.ID).Msg("Stored work order")
	return order.ID, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*models.WorkOrder, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	rec := new(WorkOrderRecord)
	err := p.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load work order %s: %w", id, err)
	}
	return withRecordFields(rec), nil
}

func (p *Postgres) List(ctx context.Context) ([]models.WorkOrder, error) {
	var recs []WorkOrderRecord
	err := p.db.NewSelect().
		Model(&recs).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	orders := make([]models.WorkOrder, 0, len(recs))
	for i := range recs {
		orders = append(orders, *withRecordFields(&recs[i]))
	}
	return orders, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func withRecordFields(rec *WorkOrderRecord) *models.WorkOrder {
	order := rec.Order
	if order == nil {
		order = &models.WorkOrder{}
	}
	order.ID = rec.ID
	order.CreatedAt = rec.CreatedAt
	return order
}

// stamp returns a copy of order with an id and creation time filled in.
// Callers copy them back only once the order is stored.
func stamp(order *models.WorkOrder) (*models.WorkOrder, error) {
	if order == nil {
		return nil, errors.New("work order is nil")
	}
	stored := *order
	if stored.ID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		stored.ID = id
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	return &stored, nil
}
