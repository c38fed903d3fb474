package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"impactfamilies/internal/config"
	"impactfamilies/internal/database"
	"impactfamilies/internal/logger"
	"impactfamilies/internal/repository"
	"impactfamilies/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.New(cfg)

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	backupService := service.NewBackupService(
		repository.NewLeaderRepository(db),
		repository.NewFamilyRepository(db),
		repository.NewMemberRepository(db),
		repository.NewBackupRepository(db),
		cfg.DatabaseType,
		log,
	)

	ctx := context.Background()
	switch os.Args[1] {
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		if err := handleExport(ctx, backupService, *exportOutput, log); err != nil {
			log.Fatal().Err(err).Msg("export failed")
		}

	case "import":
		_ = importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		if err := handleImport(ctx, backupService, *importInput, *importClear, log); err != nil {
			log.Fatal().Err(err).Msg("import failed")
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	log.Info().Str("file", outputPath).Msg("exporting database")
	if _, err := backupService.Export(ctx, file); err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		return err
	}
	log.Info().Str("size", fmt.Sprintf("%.2f MB", float64(info.Size())/1024/1024)).Msg("export complete")
	return nil
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, clearData bool, log zerolog.Logger) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	if clearData {
		fmt.Print("WARNING: This will delete all existing leaders, families and members. Type 'yes' to confirm: ")
		var confirmation string
		_, _ = fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Info().Msg("import cancelled")
			return nil
		}
	}

	log.Info().Str("file", inputPath).Bool("clear", clearData).Msg("importing database")
	if _, err := backupService.Import(ctx, file, clearData); err != nil {
		return err
	}

	log.Info().Msg("import complete")
	return nil
}

func printUsage() {
	fmt.Println("Impact Families Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to JSON file")
	fmt.Println("  backup import [options]    Import database from JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  backup export -output backups/families.json")
	fmt.Println("  backup import -input backups/families.json -clear")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./impactfamilies.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
