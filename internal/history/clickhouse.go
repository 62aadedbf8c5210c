package history

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

const createSwapsTable = `
	CREATE TABLE IF NOT EXISTS settled_swaps (
		id               String,
		signature        String,
		request_id       String,
		timestamp        DateTime64(3, 'UTC'),
		taker            String,
		input_mint       String,
		output_mint      String,
		input_symbol     String,
		output_symbol    String,
		pair             String,
		amount_in        Float64,
		amount_out       Float64,
		price            Float64,
		in_usd           Float64,
		out_usd          Float64,
		network_fee_sol  Float64,
		price_impact_pct Float64,
		slippage_bps     UInt16,
		route            String
	) ENGINE = MergeTree
	ORDER BY (taker, timestamp)
`

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, createSwapsTable); err != nil {
		return nil, fmt.Errorf("failed to create settled_swaps table: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")
	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, rec *SwapRecord) error {
	query := `
		INSERT INTO settled_swaps (
			id, signature, request_id, timestamp, taker,
			input_mint, output_mint, input_symbol, output_symbol, pair,
			amount_in, amount_out, price, in_usd, out_usd,
			network_fee_sol, price_impact_pct, slippage_bps, route
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		rec.ID,
		rec.Signature,
		rec.RequestID,
		rec.Timestamp,
		rec.Taker,
		rec.InputMint,
		rec.OutputMint,
		rec.InputSymbol,
		rec.OutputSymbol,
		rec.Pair,
		rec.AmountIn,
		rec.AmountOut,
		rec.Price,
		rec.InUSD,
		rec.OutUSD,
		rec.NetworkFeeSOL,
		rec.PriceImpactPct,
		rec.SlippageBps,
		rec.Route,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) RecentSwaps(ctx context.Context, taker string, limit int) ([]*SwapRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, signature, request_id, timestamp, taker,
			input_mint, output_mint, input_symbol, output_symbol, pair,
			amount_in, amount_out, price, in_usd, out_usd,
			network_fee_sol, price_impact_pct, slippage_bps, route
		FROM settled_swaps
		WHERE (? = '' OR taker = ?)
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := c.conn.Query(ctx, query, taker, taker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query swaps: %w", err)
	}
	defer rows.Close()

	var out []*SwapRecord
	for rows.Next() {
		var r SwapRecord
		if err := rows.Scan(
			&r.ID, &r.Signature, &r.RequestID, &r.Timestamp, &r.Taker,
			&r.InputMint, &r.OutputMint, &r.InputSymbol, &r.OutputSymbol, &r.Pair,
			&r.AmountIn, &r.AmountOut, &r.Price, &r.InUSD, &r.OutUSD,
			&r.NetworkFeeSOL, &r.PriceImpactPct, &r.SlippageBps, &r.Route,
		); err != nil {
			return nil, fmt.Errorf("failed to scan swap: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (c *ClickHouseStore) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

func (c *ClickHouseStore) Close() error { return c.conn.Close() }
