package database

import (
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vantage-erp/vantage/config"

	_ "github.com/lib/pq"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}
	err = db.Ping()
	if err != nil {
		logrus.Errorf("database connection error ❌: %v", err)
		return nil, errors.Wrap(err, "pinging database")
	}
	err = createCapitalEntryTable(db)
	if err != nil {
		return nil, err
	}
	err = createApprovalRequestTable(db)
	if err != nil {
		return nil, err
	}
	err = createPurchaseTable(db)
	if err != nil {
		return nil, err
	}
	err = createWarehouseStockTable(db)
	if err != nil {
		return nil, err
	}
	err = createSaleOrderTable(db)
	if err != nil {
		return nil, err
	}
	err = createShipmentTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createCapitalEntryTable creates a PostgreSQL table for the CapitalEntry struct.
// Entries are append-only; there is deliberately no update path in this package.
func createCapitalEntryTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS capital_entries (
			id SERIAL PRIMARY KEY,
			entry_id TEXT NOT NULL UNIQUE,
			sequence_number TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL CHECK (type IN ('CAPITAL_IN', 'CAPITAL_OUT', 'OPENING', 'REVERSE')),
			amount NUMERIC(20,4) NOT NULL CHECK (amount > 0),
			direction SMALLINT NOT NULL CHECK (direction IN (1, -1)),
			payment_currency TEXT NOT NULL,
			exchange_rate NUMERIC(20,8),
			reference TEXT,
			reverses_entry_id TEXT REFERENCES capital_entries(entry_id),
			description TEXT NOT NULL,
			created_by TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	if err != nil {
		logrus.Errorf("Error creating capital_entries table: %v", err)
	}
	return err
}

// createApprovalRequestTable creates a PostgreSQL table for the ApprovalRequest struct.
func createApprovalRequestTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS approval_requests (
			id SERIAL PRIMARY KEY,
			approval_id TEXT NOT NULL UNIQUE,
			request_number TEXT NOT NULL UNIQUE,
			operation_type TEXT NOT NULL,
			operation_data JSONB NOT NULL,
			amount NUMERIC(20,4) NOT NULL,
			currency TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			requested_by TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected', 'consumed')),
			current_approver TEXT,
			total_steps INT NOT NULL DEFAULT 1,
			operation_id TEXT,
			submitted_at TIMESTAMP NOT NULL DEFAULT NOW(),
			consumed_at TIMESTAMP
		)
	`)
	if err != nil {
		logrus.Errorf("Error creating approval_requests table: %v", err)
	}
	return err
}

// createPurchaseTable creates a PostgreSQL table for the Purchase struct.
func createPurchaseTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS purchases (
			id SERIAL PRIMARY KEY,
			purchase_id TEXT NOT NULL UNIQUE,
			purchase_number TEXT NOT NULL UNIQUE,
			supplier_id TEXT NOT NULL,
			reference TEXT NOT NULL UNIQUE,
			quantity NUMERIC(20,4) NOT NULL,
			unit_price NUMERIC(20,4) NOT NULL,
			amount NUMERIC(20,4) NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			created_by TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	if err != nil {
		logrus.Errorf("Error creating purchases table: %v", err)
	}
	return err
}

// createWarehouseStockTable creates a PostgreSQL table for the WarehouseStock struct.
func createWarehouseStockTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS warehouse_stocks (
			id SERIAL PRIMARY KEY,
			stock_id TEXT NOT NULL UNIQUE,
			purchase_id TEXT NOT NULL REFERENCES purchases(purchase_id),
			lot TEXT NOT NULL CHECK (lot IN ('RAW', 'CLEAN', 'NON_CLEAN')),
			quantity NUMERIC(20,4) NOT NULL CHECK (quantity >= 0),
			status TEXT NOT NULL CHECK (status IN ('AVAILABLE', 'SPLIT', 'RESERVED')),
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		logrus.Errorf("Error creating warehouse_stocks table: %v", err)
	}
	return err
}

// createSaleOrderTable creates a PostgreSQL table for the SaleOrder struct.
func createSaleOrderTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sale_orders (
			id SERIAL PRIMARY KEY,
			sale_order_id TEXT NOT NULL UNIQUE,
			order_number TEXT NOT NULL UNIQUE,
			customer_id TEXT NOT NULL,
			reference TEXT NOT NULL UNIQUE,
			stock_id TEXT NOT NULL REFERENCES warehouse_stocks(stock_id),
			quantity NUMERIC(20,4) NOT NULL,
			unit_price NUMERIC(20,4) NOT NULL,
			amount NUMERIC(20,4) NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			created_by TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	if err != nil {
		logrus.Errorf("Error creating sale_orders table: %v", err)
	}
	return err
}

// createShipmentTable creates a PostgreSQL table for outbound shipments. The
// table owns the SHP number sequence even while shipment handling itself is
// limited to number issuance.
func createShipmentTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS shipments (
			id SERIAL PRIMARY KEY,
			shipment_id TEXT NOT NULL UNIQUE,
			shipment_number TEXT NOT NULL UNIQUE,
			sale_order_id TEXT NOT NULL REFERENCES sale_orders(sale_order_id),
			status TEXT NOT NULL,
			created_by TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		logrus.Errorf("Error creating shipments table: %v", err)
	}
	return err
}
