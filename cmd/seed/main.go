package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/freshlyhq/freshly-backend/config"
	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/internal/db"
	"github.com/lib/pq"
	"github.com/xuri/excelize/v2"
)

// Imports a product catalog from an XLSX sheet. Expected columns:
// name, description, category, price, unit, stock, tags (comma separated),
// image_url. The first row is treated as a header.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	productRepo := repository.NewProductRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, skipped, err := readProductsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total products to import: %d (skipped %d invalid rows)\n", len(products), skipped)
	if len(products) == 0 {
		fmt.Println("Nothing to import.")
		return
	}

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	batchSize := 500
	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	if err := productRepo.BulkCreate(products, batchSize); err != nil {
		log.Fatal("Failed to bulk create products:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total products imported: %d\n", len(products))
}

func readProductsFromXLSX(filePath string) ([]model.Product, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	var products []model.Product
	seen := make(map[string]bool) // name+category dedupe
	skipped := 0

	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}
		if len(row) < 6 {
			skipped++
			continue
		}

		name := strings.TrimSpace(row[0])
		description := strings.TrimSpace(row[1])
		category := strings.ToLower(strings.TrimSpace(row[2]))
		priceStr := strings.TrimSpace(row[3])
		unit := strings.TrimSpace(row[4])
		stockStr := strings.TrimSpace(row[5])

		if name == "" || category == "" {
			skipped++
			continue
		}

		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < model.MinProductPrice || price > model.MaxProductPrice {
			skipped++
			continue
		}

		stock, err := strconv.Atoi(stockStr)
		if err != nil || stock < model.MinStock || stock > model.MaxStock {
			skipped++
			continue
		}

		var tags pq.StringArray
		if len(row) > 6 {
			for _, tag := range strings.Split(row[6], ",") {
				if t := strings.ToLower(strings.TrimSpace(tag)); t != "" {
					tags = append(tags, t)
				}
			}
		}

		var imageURL string
		if len(row) > 7 {
			imageURL = strings.TrimSpace(row[7])
		}

		key := name + "|" + category
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true

		products = append(products, model.Product{
			Name:          name,
			Description:   description,
			Category:      category,
			Price:         price,
			Unit:          unit,
			StockQuantity: stock,
			ImageURL:      imageURL,
			Tags:          tags,
		})
	}

	return products, skipped, nil
}
