package shop

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"

	"leafsense_back_end/internal/models"
)

var productColumns = []string{
	"ID", "Name", "Description", "Price", "Stock", "CategoryID",
	"DiseaseType", "Usage", "IsActive", "Image", "CreatedAt", "UpdatedAt",
}

// ExportXLSX writes every product, inactive ones included, as a workbook.
func (c *Catalog) ExportXLSX(ctx context.Context, w io.Writer) error {
	var products []models.Product
	if err := c.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return err
	}
	header := sheet.AddRow()
	for _, h := range productColumns {
		header.AddCell().SetValue(h)
	}
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetValue(p.Price)
		row.AddCell().SetValue(p.Stock)
		if p.CategoryID != nil {
			row.AddCell().SetValue(*p.CategoryID)
		} else {
			row.AddCell().SetValue("")
		}
		row.AddCell().SetValue(p.DiseaseType)
		row.AddCell().SetValue(p.Usage)
		row.AddCell().SetValue(strconv.FormatBool(p.IsActive))
		row.AddCell().SetValue(p.Image)
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return file.Write(w)
}

type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportXLSX reads a workbook in the export layout. Rows whose ID names an
// existing product update it; the others create products.
func (c *Catalog) ImportXLSX(ctx context.Context, r io.ReaderAt, size int64) (*ImportResult, error) {
	book, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}
	res := &ImportResult{}
	if len(book.Sheets) == 0 || book.Sheets[0].MaxRow < 2 {
		return res, nil
	}

	sheet := book.Sheets[0]
	for i := 1; i < sheet.MaxRow; i++ {
		row := sheet.Rows[i]
		get := func(col int) string {
			if row != nil && col < len(row.Cells) {
				return strings.TrimSpace(row.Cells[col].String())
			}
			return ""
		}

		in, err := productRow(get)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}

		id, _ := strconv.ParseUint(get(0), 10, 64)
		if id != 0 {
			if _, err := c.GetProduct(ctx, uint(id), true); err == nil {
				if _, err := c.UpdateProduct(ctx, uint(id), in); err != nil {
					res.Skipped++
					res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+1, err))
					continue
				}
				res.Updated++
				continue
			}
		}
		if _, err := c.CreateProduct(ctx, in); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		res.Created++
	}
	return res, nil
}

func productRow(get func(int) string) (ProductInput, error) {
	var in ProductInput
	name := get(1)
	if name == "" {
		return in, fmt.Errorf("name is empty")
	}
	price, err := strconv.ParseFloat(get(3), 64)
	if err != nil {
		return in, fmt.Errorf("price %q is not a number", get(3))
	}
	in.Name = &name
	in.Price = &price

	desc := get(2)
	in.Description = &desc
	if v := get(4); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return in, fmt.Errorf("stock %q is not an integer", v)
		}
		in.Stock = &stock
	}
	if v := get(5); v != "" {
		cat, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return in, fmt.Errorf("category %q is not an id", v)
		}
		id := uint(cat)
		in.CategoryID = &id
	}
	disease, usage := get(6), get(7)
	in.DiseaseType = &disease
	in.Usage = &usage
	if v := get(8); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return in, fmt.Errorf("is_active %q is not a boolean", v)
		}
		in.IsActive = &active
	}
	in.Image = get(9)
	return in, nil
}
