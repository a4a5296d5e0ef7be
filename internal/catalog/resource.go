package catalog

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/internal/domain"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	reviewSheet      = "Sheet1"
	reviewDateLayout = "2006-01-02 15:04:05"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrImportInvalid is returned with a result listing the failing rows.
	ErrImportInvalid = errors.New("import has invalid rows")
	errDryRun        = errors.New("dry run")
)

// ReviewColumns is the column order of the review import/export sheet.
var ReviewColumns = []string{"id", "product", "author", "content", "is_released", "created_date"}

// ReviewRow is one review in tabular form.
type ReviewRow struct {
	ID          string `csv:"id" mapstructure:"id" json:"id"`
	Product     string `csv:"product" mapstructure:"product" json:"product"`
	Author      string `csv:"author" mapstructure:"author" json:"author"`
	Content     string `csv:"content" mapstructure:"content" json:"content"`
	IsReleased  string `csv:"is_released" mapstructure:"is_released" json:"is_released"`
	CreatedDate string `csv:"created_date" mapstructure:"created_date" json:"created_date"`
}

func (r ReviewRow) values() []string {
	return []string{r.ID, r.Product, r.Author, r.Content, r.IsReleased, r.CreatedDate}
}

func (r ReviewRow) isBlank() bool {
	for _, v := range r.values() {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// NewReviewRow converts a stored review to its exported form.
func NewReviewRow(r domain.Review) ReviewRow {
	released := "0"
	if r.IsReleased {
		released = "1"
	}
	return ReviewRow{
		ID:          strconv.FormatInt(r.ID, 10),
		Product:     strconv.FormatInt(r.ProductID, 10),
		Author:      r.Author,
		Content:     r.Content,
		IsReleased:  released,
		CreatedDate: r.CreatedDate.Format(reviewDateLayout),
	}
}

// RowError describes why one import row was rejected. Row is 1-based and
// does not count the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	New    int        `json:"new"`
	Update int        `json:"update"`
	Skip   int        `json:"skip"`
	Errors []RowError `json:"errors"`
	DryRun bool       `json:"dry_run"`
}

// ExportReviews writes the reviews as csv or xlsx.
func ExportReviews(w io.Writer, format string, reviews []domain.Review) error {
	rows := make([]ReviewRow, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, NewReviewRow(r))
	}
	switch format {
	case FormatCSV:
		return gocsv.Marshal(&rows, w)
	case FormatXLSX:
		return writeReviewSheet(w, rows)
	default:
		return errors.Wrap(ErrUnsupportedFormat, format)
	}
}

func writeReviewSheet(w io.Writer, rows []ReviewRow) error {
	f := excelize.NewFile()
	for col, name := range ReviewColumns {
		f.SetCellValue(reviewSheet, cellName(col, 1), name)
	}
	for i, row := range rows {
		for col, v := range row.values() {
			f.SetCellValue(reviewSheet, cellName(col, i+2), v)
		}
	}
	return f.Write(w)
}

// cellName converts a 0-based column and 1-based row to an A1 reference.
func cellName(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name + strconv.Itoa(row)
}

// ParseReviews reads import rows from a csv or xlsx upload.
func ParseReviews(r io.Reader, format string) ([]ReviewRow, error) {
	switch format {
	case FormatCSV:
		var rows []ReviewRow
		if err := gocsv.Unmarshal(r, &rows); err != nil {
			return nil, errors.Wrap(err, "parse csv")
		}
		return rows, nil
	case FormatXLSX:
		return readReviewSheet(r)
	default:
		return nil, errors.Wrap(ErrUnsupportedFormat, format)
	}
}

func readReviewSheet(r io.Reader) ([]ReviewRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	sheet := f.GetSheetName(1)
	if sheet == "" {
		sheet = reviewSheet
	}
	grid := f.GetRows(sheet)
	if len(grid) == 0 {
		return []ReviewRow{}, nil
	}
	header := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	rows := make([]ReviewRow, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		record := make(map[string]interface{}, len(header))
		for i, name := range header {
			if name == "" || i >= len(cells) {
				continue
			}
			record[name] = cells[i]
		}
		var row ReviewRow
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &row,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(record); err != nil {
			return nil, errors.Wrap(err, "decode xlsx row")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ImportReviews applies the rows in one transaction. Rows with a known id
// update that review; all other rows create one. Any invalid row aborts the
// whole import and ErrImportInvalid is returned alongside the result.
// A dry run validates and counts without committing.
func ImportReviews(ctx context.Context, db *gorm.DB, rows []ReviewRow, dryRun bool) (*ImportResult, error) {
	result := &ImportResult{Errors: []RowError{}, DryRun: dryRun}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			if row.isBlank() {
				result.Skip++
				continue
			}
			created, err := importReviewRow(tx, row)
			if err != nil {
				result.Errors = append(result.Errors, RowError{Row: i + 1, Message: err.Error()})
				continue
			}
			if created {
				result.New++
			} else {
				result.Update++
			}
		}
		if len(result.Errors) > 0 {
			return ErrImportInvalid
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})
	switch {
	case errors.Is(err, errDryRun):
		return result, nil
	case errors.Is(err, ErrImportInvalid):
		return result, ErrImportInvalid
	case err != nil:
		return nil, errors.Wrap(err, "import reviews")
	}
	return result, nil
}

func importReviewRow(tx *gorm.DB, row ReviewRow) (created bool, err error) {
	productID, err := cast.ToInt64E(strings.TrimSpace(row.Product))
	if err != nil || productID <= 0 {
		return false, errors.Errorf("invalid product %q", row.Product)
	}
	var exists int64
	if err := tx.Model(&domain.Product{}).Where("id = ?", productID).Count(&exists).Error; err != nil {
		return false, err
	}
	if exists == 0 {
		return false, errors.Errorf("product %d does not exist", productID)
	}

	var review domain.Review
	created = true
	if id := strings.TrimSpace(row.ID); id != "" {
		reviewID, err := cast.ToInt64E(id)
		if err != nil || reviewID <= 0 {
			return false, errors.Errorf("invalid id %q", row.ID)
		}
		err = tx.Where("id = ?", reviewID).First(&review).Error
		switch {
		case err == nil:
			created = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			review = domain.Review{ID: reviewID}
		default:
			return false, err
		}
	}

	review.ProductID = productID
	review.Author = strings.TrimSpace(row.Author)
	review.Content = row.Content
	if v := strings.TrimSpace(row.IsReleased); v != "" {
		released, err := cast.ToBoolE(v)
		if err != nil {
			return false, errors.Errorf("invalid is_released %q", row.IsReleased)
		}
		review.IsReleased = released
	} else {
		review.IsReleased = false
	}
	if v := strings.TrimSpace(row.CreatedDate); v != "" {
		t, err := dateparse.ParseIn(v, time.Local)
		if err != nil {
			return false, errors.Errorf("invalid created_date %q", row.CreatedDate)
		}
		review.CreatedDate = t
	}

	if created {
		return true, tx.Create(&review).Error
	}
	return false, tx.Save(&review).Error
}
