// internal/gcu/csv.go
package gcu

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"gcu-service/internal/model"
)

// EncodeSettings writes settings as CSV with a header row
func EncodeSettings(w io.Writer, settings []model.Setting) error {
	csvw := csv.NewWriter(w)
	if err := csvw.Write(model.SettingFields); err != nil {
		return &PersistenceError{Err: err}
	}
	if settings == nil {
		settings = []model.Setting{}
	}
	if err := gocsv.MarshalCSVWithoutHeaders(settings, gocsv.NewSafeCSVWriter(csvw)); err != nil {
		return &PersistenceError{Err: err}
	}
	csvw.Flush()
	if err := csvw.Error(); err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}

// DecodeSettings reads CSV settings. Rows may be shorter or longer than the
// header; missing cells decode as zero.
func DecodeSettings(r io.Reader) ([]model.Setting, error) {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1

	rows, err := csvr.ReadAll()
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if len(rows) == 0 {
		return nil, &PersistenceError{Err: errors.New("missing header row")}
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if len(rows) == 1 {
		return []model.Setting{}, nil
	}

	var settings []model.Setting
	if err := gocsv.UnmarshalCSV(&recordReader{rows: rows}, &settings); err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if err := ValidateSettings(settings, 0); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings writes the staging collection as CSV
func (c *Client) SaveSettings(w io.Writer) error {
	return EncodeSettings(w, c.settings)
}

// LoadSettings replaces the staging collection with CSV content
func (c *Client) LoadSettings(r io.Reader) error {
	settings, err := DecodeSettings(r)
	if err != nil {
		return err
	}
	if err := c.ValidateSettings(settings); err != nil {
		return err
	}
	c.SetSettings(settings)
	return nil
}

// SaveSettingsFile writes the staging collection to path, truncating it
func (c *Client) SaveSettingsFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := c.SaveSettings(f); err != nil {
		f.Close()
		return withPath(err, path)
	}
	if err := f.Close(); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	c.logger.Info("Settings saved", zap.String("path", path), zap.Int("count", len(c.settings)))
	return nil
}

// LoadSettingsFile replaces the staging collection with the content of path
func (c *Client) LoadSettingsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	defer f.Close()

	if err := c.LoadSettings(f); err != nil {
		return withPath(err, path)
	}
	c.logger.Info("Settings loaded", zap.String("path", path), zap.Int("count", len(c.settings)))
	return nil
}

// checkHeader requires every Setting column to be named
func checkHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	for _, name := range model.SettingFields {
		if !present[name] {
			return fmt.Errorf("missing column %q", name)
		}
	}
	return nil
}

func withPath(err error, path string) error {
	var persErr *PersistenceError
	if errors.As(err, &persErr) && persErr.Path == "" {
		persErr.Path = path
	}
	return err
}

// recordReader replays parsed rows to gocsv
type recordReader struct {
	rows [][]string
	pos  int
}

func (r *recordReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *recordReader) ReadAll() ([][]string, error) {
	rest := r.rows[r.pos:]
	r.pos = len(r.rows)
	return rest, nil
}
