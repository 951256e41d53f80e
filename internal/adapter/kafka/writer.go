package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/radar-scan-stats/internal/config"
	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

// Writer publishes summary records to a Kafka topic, one message per scan.
// It implements pipeline.RecordLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadRecords serializes a date's records and publishes them in a single
// WriteMessages call.
func (w *Writer) LoadRecords(ctx context.Context, b domain.Batch) error {
	if len(b.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(b.Records))
	for i := range b.Records {
		msg, err := serializeToMessage(b, b.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d summaries: %w", len(msgs), err)
	}
	w.logger.Debug("summaries published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// SummaryMessage is the JSON value of a published record. Undefined
// statistics are null.
type SummaryMessage struct {
	Source       string    `json:"source"`
	Time         time.Time `json:"time"`
	ScanMode     string    `json:"scan_mode"`
	ScanName     string    `json:"scan_name"`
	TemplateName string    `json:"template_name"`

	AzimuthMin   *float64 `json:"azimuth_min"`
	AzimuthMax   *float64 `json:"azimuth_max"`
	ElevationMin *float64 `json:"elevation_min"`
	ElevationMax *float64 `json:"elevation_max"`
	RangeMin     *float64 `json:"range_min"`
	RangeMax     *float64 `json:"range_max"`

	CellAzimuth *float64 `json:"cell_azimuth"`
	CellRange   *float64 `json:"cell_range"`
	CellZh      *float64 `json:"cell_zh"`

	ReflectivityCounts []domain.GateCount `json:"reflectivity_counts"`
	HeightCounts       []domain.GateCount `json:"height_counts"`
	ValidGates         int                `json:"valid_gates"`

	PlotPath    string    `json:"plot_path,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

func newSummaryMessage(r domain.SummaryRecord) SummaryMessage {
	return SummaryMessage{
		Source:             r.Source,
		Time:               r.Time,
		ScanMode:           r.ScanMode,
		ScanName:           r.ScanName,
		TemplateName:       r.TemplateName,
		AzimuthMin:         nullable(r.AzimuthMin),
		AzimuthMax:         nullable(r.AzimuthMax),
		ElevationMin:       nullable(r.ElevationMin),
		ElevationMax:       nullable(r.ElevationMax),
		RangeMin:           nullable(r.RangeMin),
		RangeMax:           nullable(r.RangeMax),
		CellAzimuth:        nullable(r.PeakAzimuth),
		CellRange:          nullable(r.PeakRange),
		CellZh:             nullable(r.PeakReflectivity),
		ReflectivityCounts: r.ReflectivityCounts,
		HeightCounts:       r.HeightCounts,
		ValidGates:         r.ValidGates,
		PlotPath:           r.PlotPath,
		ProcessedAt:        r.ProcessedAt,
	}
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// serializeToMessage marshals a record into a Kafka message keyed by the
// scan file name.
func serializeToMessage(b domain.Batch, r domain.SummaryRecord) (kafkago.Message, error) {
	data, err := json.Marshal(newSummaryMessage(r))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize scan summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(filepath.Base(r.Source)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(b.RunID)},
			{Key: "date", Value: []byte(b.Date.UTC().Format("20060102"))},
			{Key: "processed_at", Value: []byte(r.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
