// internal/repository/influxDB_repository.go

package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"facilitymonitor/internal/models"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// Measurement names mirror the relational table names.
const (
	measurementClimate     = "sensor_data"
	measurementFireSmoke   = "api_asap_data"
	measurementElectricity = "listrik_noc"
)

// InfluxDBRepository stores readings as one point per row, fields named like the SQL columns.
type InfluxDBRepository struct {
	client influxdb2.Client
	org    string
	bucket string
	logger *slog.Logger
}

// NewInfluxDBRepository creates a new InfluxDBRepository.
func NewInfluxDBRepository(url, token, org, bucket string, logger *slog.Logger) *InfluxDBRepository {
	return &InfluxDBRepository{
		client: influxdb2.NewClient(url, token),
		org:    org,
		bucket: bucket,
		logger: logger,
	}
}

func (r *InfluxDBRepository) Close() {
	r.client.Close()
}

// BucketExists checks if the configured bucket exists in InfluxDB.
func (r *InfluxDBRepository) BucketExists(ctx context.Context) (bool, error) {
	_, err := r.client.BucketsAPI().FindBucketByName(ctx, r.bucket)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("error checking bucket existence: %w", err)
	}
	return true, nil
}

// EnsureBucket creates the configured bucket when it is missing.
func (r *InfluxDBRepository) EnsureBucket(ctx context.Context) error {
	exists, err := r.BucketExists(ctx)
	if err != nil || exists {
		return err
	}

	org, err := r.client.OrganizationsAPI().FindOrganizationByName(ctx, r.org)
	if err != nil {
		return fmt.Errorf("find organization %q: %w", r.org, err)
	}
	if org == nil {
		return fmt.Errorf("organization '%s' not found", r.org)
	}
	if _, err := r.client.BucketsAPI().CreateBucketWithName(ctx, org, r.bucket); err != nil {
		return fmt.Errorf("create bucket %q: %w", r.bucket, err)
	}
	r.logger.Info("bucket created", "bucket", r.bucket)
	return nil
}

func (r *InfluxDBRepository) Ping(ctx context.Context) error {
	ok, err := r.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influxdb is not ready")
	}
	return nil
}

func (r *InfluxDBRepository) InsertClimate(ctx context.Context, rd models.ClimateReading) error {
	return r.writePoint(ctx, measurementClimate, map[string]any{
		"suhu":       rd.Temperature,
		"kelembapan": rd.Humidity,
	}, rd.Timestamp)
}

func (r *InfluxDBRepository) InsertFireSmoke(ctx context.Context, rd models.FireSmokeReading) error {
	return r.writePoint(ctx, measurementFireSmoke, map[string]any{
		"api_value":  rd.FireIndex,
		"asap_value": rd.SmokeIndex,
	}, rd.Timestamp)
}

func (r *InfluxDBRepository) InsertElectricity(ctx context.Context, rd models.ElectricityReading) error {
	fields := make(map[string]any, len(models.ElectricityColumns))
	for i, v := range rd.Values() {
		fields[models.ElectricityColumns[i]] = v
	}
	return r.writePoint(ctx, measurementElectricity, fields, rd.Timestamp)
}

func (r *InfluxDBRepository) writePoint(ctx context.Context, measurement string, fields map[string]any, ts time.Time) error {
	p := influxdb2.NewPoint(measurement, nil, fields, stamp(ts))
	if err := r.client.WriteAPIBlocking(r.org, r.bucket).WritePoint(ctx, p); err != nil {
		return fmt.Errorf("error writing to InfluxDB: %w", err)
	}
	r.logger.Debug("point written", "bucket", r.bucket, "measurement", measurement)
	return nil
}

// row is one pivoted record: field name to value plus the point time.
type row struct {
	values map[string]float64
	time   time.Time
}

func (r *InfluxDBRepository) query(ctx context.Context, measurement string, limit, offset int) ([]row, error) {
	flux := fmt.Sprintf(`
		from(bucket: %q)
		|> range(start: 0)
		|> filter(fn: (r) => r["_measurement"] == %q)
		|> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
		|> group()
		|> sort(columns: ["_time"], desc: true)`, r.bucket, measurement)
	if limit > 0 {
		flux += fmt.Sprintf("\n\t\t|> limit(n: %d, offset: %d)", limit, offset)
	}

	result, err := r.client.QueryAPI(r.org).Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("error querying InfluxDB: %w", err)
	}
	defer result.Close()

	var rows []row
	for result.Next() {
		record := result.Record()
		values := make(map[string]float64)
		for k, v := range record.Values() {
			switch n := v.(type) {
			case float64:
				values[k] = n
			case int64:
				values[k] = float64(n)
			}
		}
		rows = append(rows, row{values: values, time: record.Time()})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("error during query iteration: %w", result.Err())
	}
	return rows, nil
}

func (r *InfluxDBRepository) LatestClimate(ctx context.Context, offset int) (models.ClimateReading, error) {
	rows, err := r.query(ctx, measurementClimate, 1, offset)
	if err != nil {
		return models.ClimateReading{}, err
	}
	if len(rows) == 0 {
		return models.ClimateReading{}, ErrNotFound
	}
	return climateFromRow(rows[0]), nil
}

func (r *InfluxDBRepository) LatestFireSmoke(ctx context.Context) (models.FireSmokeReading, error) {
	rows, err := r.query(ctx, measurementFireSmoke, 1, 0)
	if err != nil {
		return models.FireSmokeReading{}, err
	}
	if len(rows) == 0 {
		return models.FireSmokeReading{}, ErrNotFound
	}
	return fireSmokeFromRow(rows[0]), nil
}

func (r *InfluxDBRepository) LatestElectricity(ctx context.Context) (models.ElectricityReading, error) {
	rows, err := r.query(ctx, measurementElectricity, 1, 0)
	if err != nil {
		return models.ElectricityReading{}, err
	}
	if len(rows) == 0 {
		return models.ElectricityReading{}, ErrNotFound
	}
	return electricityFromRow(rows[0]), nil
}

func (r *InfluxDBRepository) ClimateHistory(ctx context.Context) ([]models.ClimateReading, error) {
	rows, err := r.query(ctx, measurementClimate, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.ClimateReading, len(rows))
	for i, rw := range rows {
		out[i] = climateFromRow(rw)
	}
	return out, nil
}

func (r *InfluxDBRepository) FireSmokeHistory(ctx context.Context) ([]models.FireSmokeReading, error) {
	rows, err := r.query(ctx, measurementFireSmoke, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.FireSmokeReading, len(rows))
	for i, rw := range rows {
		out[i] = fireSmokeFromRow(rw)
	}
	return out, nil
}

func (r *InfluxDBRepository) ElectricityHistory(ctx context.Context) ([]models.ElectricityReading, error) {
	rows, err := r.query(ctx, measurementElectricity, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.ElectricityReading, len(rows))
	for i, rw := range rows {
		out[i] = electricityFromRow(rw)
	}
	return out, nil
}

func climateFromRow(rw row) models.ClimateReading {
	return models.ClimateReading{
		Temperature: rw.values["suhu"],
		Humidity:    rw.values["kelembapan"],
		Timestamp:   rw.time,
	}
}

func fireSmokeFromRow(rw row) models.FireSmokeReading {
	return models.FireSmokeReading{
		FireIndex:  rw.values["api_value"],
		SmokeIndex: rw.values["asap_value"],
		Timestamp:  rw.time,
	}
}

func electricityFromRow(rw row) models.ElectricityReading {
	values := make([]float64, len(models.ElectricityColumns))
	for i, col := range models.ElectricityColumns {
		values[i] = rw.values[col]
	}
	e := models.ElectricityReading{Timestamp: rw.time}
	e.SetValues(values)
	return e
}
