package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/db"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"package-tracking-service/internal/ports"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	fileKindImage = "image"
	fileKindPDF   = "pdf"

	defaultListLimit = 100
	maxListLimit     = 500
)

const packageColumns = `
	tracking_number, status, description, weight, length, width, height,
	sender, recipient,
	payment_amount, payment_currency, payment_is_paid, payment_method, payment_is_visible,
	location_address, location_lat, location_lng,
	admin_id, package_type, date_shipped, estimated_delivery,
	created_at, updated_at`

// SQL-backed implementation of the PackageRepository port, shared by the
// SQLite and Postgres dialects.
type SQLPackageRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
	Log     *logger.Logger
}

func NewSQLPackageRepository(conn *sql.DB, dialect db.Dialect, log *logger.Logger) *SQLPackageRepository {
	return &SQLPackageRepository{DB: conn, Dialect: dialect, Log: log}
}

var _ ports.PackageRepository = (*SQLPackageRepository)(nil)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLPackageRepository) Initialize(ctx context.Context) (err error) {
	defer obs.Time(ctx, s.Log, "packages.sql.Initialize")(&err)
	return InitSchema(ctx, s.DB)
}

// Return the package with its checkpoints and file references.
func (s *SQLPackageRepository) Get(ctx context.Context, trackingNumber string) (_ *domain.Package, err error) {
	defer obs.Time(ctx, s.Log, "packages.sql.Get")(&err)

	if s.DB == nil {
		return nil, errors.New("sql package repository: DB is nil")
	}

	q := s.Dialect.Rebind(`SELECT ` + packageColumns + ` FROM packages WHERE tracking_number = ?;`)
	pkg, err := scanPackage(s.DB.QueryRowContext(ctx, q, trackingNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get package %q: %w", trackingNumber, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get package %q: scan row: %w", trackingNumber, err)
	}

	if err := s.loadChildren(ctx, s.DB, pkg); err != nil {
		return nil, fmt.Errorf("get package %q: %w", trackingNumber, err)
	}
	return pkg, nil
}

// Return packages newest first, with their children loaded.
func (s *SQLPackageRepository) List(ctx context.Context, filter ports.PackageFilter) (_ []*domain.Package, err error) {
	defer obs.Time(ctx, s.Log, "packages.sql.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql package repository: DB is nil")
	}

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.AdminID != "" {
		where = append(where, "admin_id = ?")
		args = append(args, filter.AdminID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	var b strings.Builder
	b.WriteString(`SELECT ` + packageColumns + ` FROM packages`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, tracking_number LIMIT ? OFFSET ?;")

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("list packages: query packages table: %w", err)
	}

	packages := make([]*domain.Package, 0, limit)
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("list packages: scan row: %w", err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list packages: row iteration: %w", err)
	}
	// Release the connection before loading children; SQLite runs with a single one.
	rows.Close()

	for _, pkg := range packages {
		if err := s.loadChildren(ctx, s.DB, pkg); err != nil {
			return nil, fmt.Errorf("list packages: %w", err)
		}
	}
	return packages, nil
}

func (s *SQLPackageRepository) Create(ctx context.Context, pkg *domain.Package) (err error) {
	defer obs.Time(ctx, s.Log, "packages.sql.Create")(&err)

	if s.DB == nil {
		return errors.New("sql package repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create package: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := s.exists(ctx, tx, pkg.TrackingNumber)
	if err != nil {
		return fmt.Errorf("create package %q: %w", pkg.TrackingNumber, err)
	}
	if exists {
		return fmt.Errorf("create package %q: %w", pkg.TrackingNumber, domain.ErrConflict)
	}

	args, err := packageArgs(pkg)
	if err != nil {
		return fmt.Errorf("create package %q: %w", pkg.TrackingNumber, err)
	}

	q := s.Dialect.Rebind(`INSERT INTO packages (` + packageColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create package %q: %w", pkg.TrackingNumber, domain.ErrConflict)
		}
		return fmt.Errorf("create package %q: insert: %w", pkg.TrackingNumber, err)
	}

	if err := s.writeChildren(ctx, tx, pkg); err != nil {
		return fmt.Errorf("create package %q: %w", pkg.TrackingNumber, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create package %q: commit tx: %w", pkg.TrackingNumber, err)
	}
	return nil
}

// Update rewrites the package row and replaces its children in one
// transaction. The updated_at guard makes a concurrent writer that read the
// same version fail with ErrConflict instead of overwriting.
func (s *SQLPackageRepository) Update(ctx context.Context, pkg *domain.Package, expectedUpdatedAt time.Time) (err error) {
	defer obs.Time(ctx, s.Log, "packages.sql.Update")(&err)

	if s.DB == nil {
		return errors.New("sql package repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update package: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args, err := packageArgs(pkg)
	if err != nil {
		return fmt.Errorf("update package %q: %w", pkg.TrackingNumber, err)
	}
	// Drop tracking_number and created_at; both are immutable.
	setArgs := append([]any{}, args[1:21]...)
	setArgs = append(setArgs, args[22], pkg.TrackingNumber, expectedUpdatedAt.UnixNano())

	q := s.Dialect.Rebind(`
	UPDATE packages SET
		status = ?, description = ?, weight = ?, length = ?, width = ?, height = ?,
		sender = ?, recipient = ?,
		payment_amount = ?, payment_currency = ?, payment_is_paid = ?, payment_method = ?, payment_is_visible = ?,
		location_address = ?, location_lat = ?, location_lng = ?,
		admin_id = ?, package_type = ?, date_shipped = ?, estimated_delivery = ?,
		updated_at = ?
	WHERE tracking_number = ? AND updated_at = ?;
	`)
	res, err := tx.ExecContext(ctx, q, setArgs...)
	if err != nil {
		return fmt.Errorf("update package %q: exec: %w", pkg.TrackingNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update package %q: rows affected: %w", pkg.TrackingNumber, err)
	}
	if n == 0 {
		exists, err := s.exists(ctx, tx, pkg.TrackingNumber)
		if err != nil {
			return fmt.Errorf("update package %q: %w", pkg.TrackingNumber, err)
		}
		if !exists {
			return fmt.Errorf("update package %q: %w", pkg.TrackingNumber, domain.ErrNotFound)
		}
		return fmt.Errorf("update package %q: stale write: %w", pkg.TrackingNumber, domain.ErrConflict)
	}

	for _, table := range []string{"checkpoints", "package_files"} {
		del := s.Dialect.Rebind(`DELETE FROM ` + table + ` WHERE tracking_number = ?;`)
		if _, err := tx.ExecContext(ctx, del, pkg.TrackingNumber); err != nil {
			return fmt.Errorf("update package %q: clear %s: %w", pkg.TrackingNumber, table, err)
		}
	}
	if err := s.writeChildren(ctx, tx, pkg); err != nil {
		return fmt.Errorf("update package %q: %w", pkg.TrackingNumber, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update package %q: commit tx: %w", pkg.TrackingNumber, err)
	}
	return nil
}

// Delete removes the package, its checkpoints and file references together.
// The returned snapshot is read inside the deleting transaction, so it lists
// every file reference that was committed before the delete.
func (s *SQLPackageRepository) Delete(ctx context.Context, trackingNumber string) (_ *domain.Package, err error) {
	defer obs.Time(ctx, s.Log, "packages.sql.Delete")(&err)

	if s.DB == nil {
		return nil, errors.New("sql package repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete package: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sel := `SELECT ` + packageColumns + ` FROM packages WHERE tracking_number = ?`
	if s.Dialect == db.Postgres {
		// Hold the row so a concurrent Update cannot add files after the read.
		sel += ` FOR UPDATE`
	}
	pkg, err := scanPackage(tx.QueryRowContext(ctx, s.Dialect.Rebind(sel+";"), trackingNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delete package %q: %w", trackingNumber, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete package %q: scan row: %w", trackingNumber, err)
	}
	if err := s.loadChildren(ctx, tx, pkg); err != nil {
		return nil, fmt.Errorf("delete package %q: %w", trackingNumber, err)
	}

	for _, table := range []string{"checkpoints", "package_files"} {
		q := s.Dialect.Rebind(`DELETE FROM ` + table + ` WHERE tracking_number = ?;`)
		if _, err := tx.ExecContext(ctx, q, trackingNumber); err != nil {
			return nil, fmt.Errorf("delete package %q: clear %s: %w", trackingNumber, table, err)
		}
	}

	res, err := tx.ExecContext(ctx, s.Dialect.Rebind(`DELETE FROM packages WHERE tracking_number = ?;`), trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("delete package %q: exec: %w", trackingNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete package %q: rows affected: %w", trackingNumber, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("delete package %q: %w", trackingNumber, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete package %q: commit tx: %w", trackingNumber, err)
	}
	return pkg, nil
}

func (s *SQLPackageRepository) exists(ctx context.Context, q queryer, trackingNumber string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, s.Dialect.Rebind(`SELECT 1 FROM packages WHERE tracking_number = ?;`), trackingNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return true, nil
}

func (s *SQLPackageRepository) writeChildren(ctx context.Context, q queryer, pkg *domain.Package) error {
	insCP := s.Dialect.Rebind(`
	INSERT INTO checkpoints (
		tracking_number, id, seq, status, location, lat, lng,
		occurred_at, description, custom_date, custom_time
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	for i, cp := range pkg.Checkpoints.Items() {
		lat, lng := nullCoords(cp.Coordinates)
		if _, err := q.ExecContext(ctx, insCP,
			pkg.TrackingNumber, cp.ID, i, string(cp.Status), cp.Location, lat, lng,
			cp.Timestamp.UnixNano(), cp.Description, cp.CustomDate, cp.CustomTime,
		); err != nil {
			return fmt.Errorf("insert checkpoint %q: %w", cp.ID, err)
		}
	}

	insFile := s.Dialect.Rebind(`
	INSERT INTO package_files (tracking_number, kind, position, url)
	VALUES (?, ?, ?, ?);
	`)
	files := map[string][]string{fileKindImage: pkg.Images, fileKindPDF: pkg.PDFs}
	for _, kind := range []string{fileKindImage, fileKindPDF} {
		for i, url := range files[kind] {
			if _, err := q.ExecContext(ctx, insFile, pkg.TrackingNumber, kind, i, url); err != nil {
				return fmt.Errorf("insert %s #%d: %w", kind, i, err)
			}
		}
	}
	return nil
}

func (s *SQLPackageRepository) loadChildren(ctx context.Context, q queryer, pkg *domain.Package) error {
	rows, err := q.QueryContext(ctx, s.Dialect.Rebind(`
	SELECT id, status, location, lat, lng, occurred_at, description, custom_date, custom_time
	FROM checkpoints
	WHERE tracking_number = ?
	ORDER BY seq;
	`), pkg.TrackingNumber)
	if err != nil {
		return fmt.Errorf("query checkpoints: %w", err)
	}

	var items []domain.Checkpoint
	for rows.Next() {
		var (
			cp       domain.Checkpoint
			status   string
			lat, lng sql.NullFloat64
			at       int64
		)
		if err := rows.Scan(&cp.ID, &status, &cp.Location, &lat, &lng, &at, &cp.Description, &cp.CustomDate, &cp.CustomTime); err != nil {
			rows.Close()
			return fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.Status = domain.Status(status)
		cp.Coordinates = coordsFromNull(lat, lng)
		cp.Timestamp = time.Unix(0, at).UTC()
		items = append(items, cp)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("checkpoint iteration: %w", err)
	}
	rows.Close()
	pkg.Checkpoints = domain.NewLedger(items)

	rows, err = q.QueryContext(ctx, s.Dialect.Rebind(`
	SELECT kind, url
	FROM package_files
	WHERE tracking_number = ?
	ORDER BY kind, position;
	`), pkg.TrackingNumber)
	if err != nil {
		return fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, url string
		if err := rows.Scan(&kind, &url); err != nil {
			return fmt.Errorf("scan file: %w", err)
		}
		switch kind {
		case fileKindImage:
			pkg.Images = append(pkg.Images, url)
		case fileKindPDF:
			pkg.PDFs = append(pkg.PDFs, url)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("file iteration: %w", err)
	}
	return nil
}

// packageArgs returns values in packageColumns order.
func packageArgs(pkg *domain.Package) ([]any, error) {
	sender, err := json.Marshal(pkg.Sender)
	if err != nil {
		return nil, fmt.Errorf("encode sender: %w", err)
	}
	recipient, err := json.Marshal(pkg.Recipient)
	if err != nil {
		return nil, fmt.Errorf("encode recipient: %w", err)
	}

	var (
		locAddress     sql.NullString
		locLat, locLng sql.NullFloat64
		shipped, eta   sql.NullInt64
	)
	if !pkg.CurrentLocation.IsZero() {
		locAddress = sql.NullString{String: pkg.CurrentLocation.Address, Valid: true}
		locLat, locLng = nullCoords(pkg.CurrentLocation.Coordinates)
	}
	if pkg.DateShipped != nil {
		shipped = sql.NullInt64{Int64: pkg.DateShipped.UnixNano(), Valid: true}
	}
	if pkg.EstimatedDeliveryDate != nil {
		eta = sql.NullInt64{Int64: pkg.EstimatedDeliveryDate.UnixNano(), Valid: true}
	}

	return []any{
		pkg.TrackingNumber,
		string(pkg.Status),
		pkg.Description,
		pkg.Weight,
		pkg.Dimensions.Length,
		pkg.Dimensions.Width,
		pkg.Dimensions.Height,
		string(sender),
		string(recipient),
		pkg.Payment.Amount.String(),
		pkg.Payment.Currency,
		pkg.Payment.IsPaid,
		pkg.Payment.Method,
		pkg.Payment.IsVisible,
		locAddress,
		locLat,
		locLng,
		pkg.AdminID,
		pkg.PackageType,
		shipped,
		eta,
		pkg.CreatedAt.UnixNano(),
		pkg.UpdatedAt.UnixNano(),
	}, nil
}

func scanPackage(row rowScanner) (*domain.Package, error) {
	var (
		pkg                  domain.Package
		status               string
		sender, recipient    string
		amount               string
		locAddress           sql.NullString
		locLat, locLng       sql.NullFloat64
		shipped, eta         sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&pkg.TrackingNumber, &status, &pkg.Description, &pkg.Weight,
		&pkg.Dimensions.Length, &pkg.Dimensions.Width, &pkg.Dimensions.Height,
		&sender, &recipient,
		&amount, &pkg.Payment.Currency, &pkg.Payment.IsPaid, &pkg.Payment.Method, &pkg.Payment.IsVisible,
		&locAddress, &locLat, &locLng,
		&pkg.AdminID, &pkg.PackageType, &shipped, &eta,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	pkg.Status = domain.Status(status)
	if err := json.Unmarshal([]byte(sender), &pkg.Sender); err != nil {
		return nil, fmt.Errorf("decode sender: %w", err)
	}
	if err := json.Unmarshal([]byte(recipient), &pkg.Recipient); err != nil {
		return nil, fmt.Errorf("decode recipient: %w", err)
	}
	pkg.Payment.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("decode payment amount %q: %w", amount, err)
	}
	if locAddress.Valid {
		pkg.CurrentLocation = &domain.Location{
			Address:     locAddress.String,
			Coordinates: coordsFromNull(locLat, locLng),
		}
	}
	if shipped.Valid {
		t := time.Unix(0, shipped.Int64).UTC()
		pkg.DateShipped = &t
	}
	if eta.Valid {
		t := time.Unix(0, eta.Int64).UTC()
		pkg.EstimatedDeliveryDate = &t
	}
	pkg.CreatedAt = time.Unix(0, createdAt).UTC()
	pkg.UpdatedAt = time.Unix(0, updatedAt).UTC()
	pkg.Checkpoints = domain.NewLedger(nil)

	return &pkg, nil
}

func nullCoords(c *domain.Coordinates) (sql.NullFloat64, sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lng, Valid: true}
}

func coordsFromNull(lat, lng sql.NullFloat64) *domain.Coordinates {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
}
