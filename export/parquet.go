package export

import (
	"fmt"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/lucasjlepore/fit-intervals/session"
)

type parquetRow struct {
	ElapsedS       float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	DistanceM      float64 `parquet:"name=distance_m, type=DOUBLE"`
	PowerW         float64 `parquet:"name=power_w, type=DOUBLE"`
	HRBPM          float64 `parquet:"name=hr_bpm, type=DOUBLE"`
	CadenceRPM     float64 `parquet:"name=cadence_rpm, type=DOUBLE"`
	SpeedMPS       float64 `parquet:"name=speed_mps, type=DOUBLE"`
	AltitudeM      float64 `parquet:"name=altitude_m, type=DOUBLE"`
	Lat            float64 `parquet:"name=lat, type=DOUBLE"`
	Lon            float64 `parquet:"name=lon, type=DOUBLE"`
	TemperatureC   float64 `parquet:"name=temperature_c, type=DOUBLE"`
	GradePct       float64 `parquet:"name=grade_pct, type=DOUBLE"`
	RollingPowerW  float64 `parquet:"name=rolling_power_w, type=DOUBLE"`
	WeightedPowerW float64 `parquet:"name=weighted_power_w, type=DOUBLE"`
	AltitudePowerW float64 `parquet:"name=altitude_power_w, type=DOUBLE"`
	SourceIndex    int64   `parquet:"name=source_index, type=INT64"`
	Boundary       bool    `parquet:"name=boundary, type=BOOLEAN"`
}

func writeParquet(fw source.ParquetFile, stream *session.Stream) error {
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows(stream) {
		if err := pw.Write(parquetRow(r)); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

// MarshalParquet encodes the stream as a Parquet file in memory.
func MarshalParquet(stream *session.Stream) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeParquet(fw, stream); err != nil {
		return nil, fmt.Errorf("encode parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func WriteParquetFile(path string, stream *session.Stream) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeParquet(fw, stream); err != nil {
		_ = fw.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return fw.Close()
}
