package sessions

import (
	"errors"
	"fmt"
	"strconv"

	"gamedash/internal/engine"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// Row is one session record in Parquet form. Numeric fields are stored as
// doubles, matching the in-memory representation.
type Row struct {
	PlayerID                  string  `parquet:"name=player_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Age                       float64 `parquet:"name=age, type=DOUBLE"`
	Gender                    string  `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Location                  string  `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	GameGenre                 string  `parquet:"name=game_genre, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PlayTimeHours             float64 `parquet:"name=play_time_hours, type=DOUBLE"`
	InGamePurchases           float64 `parquet:"name=in_game_purchases, type=DOUBLE"`
	GameDifficulty            string  `parquet:"name=game_difficulty, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SessionsPerWeek           float64 `parquet:"name=sessions_per_week, type=DOUBLE"`
	AvgSessionDurationMinutes float64 `parquet:"name=avg_session_duration_minutes, type=DOUBLE"`
	PlayerLevel               float64 `parquet:"name=player_level, type=DOUBLE"`
	AchievementsUnlocked      float64 `parquet:"name=achievements_unlocked, type=DOUBLE"`
	EngagementLevel           string  `parquet:"name=engagement_level, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// fields returns the row's values in Schema order.
func (r Row) fields() []string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		r.PlayerID,
		num(r.Age),
		r.Gender,
		r.Location,
		r.GameGenre,
		num(r.PlayTimeHours),
		num(r.InGamePurchases),
		r.GameDifficulty,
		num(r.SessionsPerWeek),
		num(r.AvgSessionDurationMinutes),
		num(r.PlayerLevel),
		num(r.AchievementsUnlocked),
		r.EngagementLevel,
	}
}

// ReadParquet loads a Parquet file written by WriteParquet.
func ReadParquet(path string) (*engine.ColumnStore, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, &engine.LoadError{Path: path, Err: err}
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(Row), 4)
	if err != nil {
		return nil, &engine.LoadError{Path: path, Err: fmt.Errorf("open parquet reader: %w", err)}
	}
	defer pr.ReadStop()

	rows := make([]Row, int(pr.GetNumRows()))
	if err := pr.Read(&rows); err != nil {
		return nil, &engine.LoadError{Path: path, Err: fmt.Errorf("read parquet rows: %w", err)}
	}

	b := engine.NewBuilder(Schema)
	for _, r := range rows {
		if err := b.Append(r.fields()); err != nil {
			var le *engine.LoadError
			if errors.As(err, &le) {
				le.Path = path
			}
			return nil, err
		}
	}
	return b.Build(), nil
}

// WriteParquet writes the visible rows of f, which must carry Schema.
func WriteParquet(path string, f *engine.Frame) error {
	cols := make(map[string][]string)
	nums := make(map[string][]float64)
	for _, def := range Schema {
		var err error
		if def.Kind == engine.Numeric {
			nums[def.Name], err = f.Float64s(def.Name)
		} else {
			cols[def.Name], err = f.Strings(def.Name)
		}
		if err != nil {
			return fmt.Errorf("column %s: %w", def.Name, err)
		}
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(Row), 4)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := 0; i < f.Len(); i++ {
		row := Row{
			PlayerID:                  cols[PlayerID][i],
			Age:                       nums[Age][i],
			Gender:                    cols[Gender][i],
			Location:                  cols[Location][i],
			GameGenre:                 cols[GameGenre][i],
			PlayTimeHours:             nums[PlayTimeHours][i],
			InGamePurchases:           nums[InGamePurchases][i],
			GameDifficulty:            cols[GameDifficulty][i],
			SessionsPerWeek:           nums[SessionsPerWeek][i],
			AvgSessionDurationMinutes: nums[AvgSessionDurationMinutes][i],
			PlayerLevel:               nums[PlayerLevel][i],
			AchievementsUnlocked:      nums[AchievementsUnlocked][i],
			EngagementLevel:           cols[EngagementLevel][i],
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("write parquet row %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return fw.Close()
}
