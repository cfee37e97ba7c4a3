// Command reindex adds pictures already present in the output directory to the catalog.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"autosendpic/internal/config"
	"autosendpic/internal/model"
	"autosendpic/internal/repository"
	"autosendpic/internal/repository/sqlite"
	"autosendpic/internal/service/storage"

	"github.com/google/uuid"
)

// result counts what one reindex pass did.
type result struct {
	Added     int
	Existing  int
	Skipped   int
	TotalSize int64
}

func main() {
	cfg := config.Load()

	picturesDir := flag.String("pictures", cfg.OutputDirectory, "Directory containing pictures")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	flag.Parse()

	fmt.Printf("Indexing pictures from %s into database %s\n", *picturesDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewPictureRepository(db)
	namer := storage.NewNamer(cfg.FilenameTemplate, cfg.TimestampLayout)

	res, err := reindex(*picturesDir, repo, namer)
	if err != nil {
		log.Fatalf("Reindex failed: %v", err)
	}

	fmt.Printf("✅ Indexed %d pictures (%d bytes)\n", res.Added, res.TotalSize)
	if res.Existing > 0 {
		fmt.Printf("   Already catalogued: %d\n", res.Existing)
	}
	if res.Skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (unknown name format or errors)\n", res.Skipped)
	}

	total, err := repo.GetTotalCount(nil)
	if err == nil {
		fmt.Printf("\n📊 Catalog now holds %d pictures\n", total)
	}
}

// reindex inserts every file in dir whose name matches namer and is not yet catalogued.
func reindex(dir string, repo repository.PictureRepository, namer *storage.Namer) (result, error) {
	var res result

	files, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("failed to read pictures directory: %w", err)
	}

	for _, file := range files {
		name := file.Name()
		if file.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		capturedAt, ok := namer.Parse(name)
		if !ok {
			log.Printf("⚠️  Skipping %s: name does not match the filename template", name)
			res.Skipped++
			continue
		}

		found, err := repo.Exists(name)
		if err != nil {
			return res, fmt.Errorf("failed to check %s: %w", name, err)
		}
		if found {
			res.Existing++
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("⚠️  Failed to read %s: %v", name, err)
			res.Skipped++
			continue
		}

		err = repo.Insert(&model.Picture{
			ID:         uuid.NewString(),
			Filename:   name,
			CapturedAt: capturedAt,
			FileSize:   int64(len(data)),
			Data:       data,
		})
		if err != nil {
			log.Printf("⚠️  Failed to insert %s: %v", name, err)
			res.Skipped++
			continue
		}
		res.Added++
		res.TotalSize += int64(len(data))
	}
	return res, nil
}
