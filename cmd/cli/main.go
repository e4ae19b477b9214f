package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/autoledger/internal/domain"
	"github.com/dvloznov/autoledger/internal/extract"
	"github.com/dvloznov/autoledger/internal/logger"
	"github.com/dvloznov/autoledger/internal/report"
	"github.com/dvloznov/autoledger/internal/store"
	"github.com/dvloznov/autoledger/internal/taxonomy"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "extract":
		runExtract(log)
	case "add":
		runAdd(log)
	case "list":
		runList(log)
	case "summary":
		runSummary(log)
	case "export":
		runExport(log)
	case "import":
		runImport(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Autoledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  extract   Extract a transaction draft from text or an image via Gemini")
	fmt.Println("  add       Record a transaction in the ledger")
	fmt.Println("  list      List recorded transactions, newest first")
	fmt.Println("  summary   Print grouped income/expense totals by day, month or year")
	fmt.Println("  export    Write the full ledger as a JSON backup")
	fmt.Println("  import    Replace the ledger with a JSON backup")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func defaultDBPath() string {
	if p := os.Getenv("AUTOLEDGER_DB"); p != "" {
		return p
	}
	return "data/autoledger.db"
}

func openStore(log zerolog.Logger, dbPath string) *store.Store {
	s, err := store.Open(dbPath, log)
	if err != nil {
		log.Fatal().Err(err).Str("db", dbPath).Msg("Failed to open ledger store")
	}
	return s
}

func runExtract(log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	text := fs.String("text", "", "Free text describing the transaction")
	imagePath := fs.String("image", "", "Path to a receipt or screenshot image")
	model := fs.String("model", extract.DefaultModelName, "Gemini model name")
	dbPath := fs.String("db", defaultDBPath(), "Path to the ledger database")
	save := fs.Bool("save", false, "Record the extracted draft in the ledger")
	fs.Parse(os.Args[2:])

	input := extract.Input{Text: *text}
	if *imagePath != "" {
		raw, err := os.ReadFile(*imagePath)
		if err != nil {
			log.Fatal().Err(err).Str("image", *imagePath).Msg("Failed to read image")
		}
		input.Image = &extract.Image{Bytes: raw, MIMEType: mimeTypeForFile(*imagePath)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	normalizer := extract.NewNormalizer(extract.NewGeminiAnalyzer(*model), log)
	draft, err := normalizer.Normalize(ctx, input)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	out, _ := json.MarshalIndent(draft, "", "  ")
	fmt.Println(string(out))

	if !*save {
		return
	}

	tx := domain.Transaction{
		ID:       uuid.NewString(),
		Type:     draft.Type,
		Amount:   draft.Amount,
		Merchant: draft.Merchant,
		Category: draft.Category,
		Date:     draft.Date,
	}
	if tx.Date == "" {
		tx.Date = time.Now().Format(domain.DateLayout)
	}

	s := openStore(log, *dbPath)
	defer s.Close()

	if err := s.Append(ctx, tx); err != nil {
		log.Fatal().Err(err).Msg("Failed to save transaction")
	}
	fmt.Printf("Recorded transaction %s\n", tx.ID)
}

func runAdd(log zerolog.Logger) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	txType := fs.String("type", string(taxonomy.Expense), "Transaction type: expense or income")
	amount := fs.String("amount", "", "Amount, e.g. 28.50")
	merchant := fs.String("merchant", "", "Merchant or source")
	category := fs.String("category", "", "Category label (defaults to the type's catch-all)")
	date := fs.String("date", "", "Date as YYYY-MM-DD (defaults to today)")
	note := fs.String("note", "", "Optional note")
	dbPath := fs.String("db", defaultDBPath(), "Path to the ledger database")
	fs.Parse(os.Args[2:])

	if *amount == "" || *merchant == "" {
		log.Fatal().Msg("Usage: cli add -type TYPE -amount AMOUNT -merchant NAME [-category LABEL] [-date YYYY-MM-DD]")
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid amount")
	}

	tt := taxonomy.TransactionType(*txType)
	cat := taxonomy.Category(*category)
	if *category == "" && tt.Valid() {
		cat = taxonomy.DefaultCategory(tt)
	}
	if *date == "" {
		*date = time.Now().Format(domain.DateLayout)
	}

	tx := domain.Transaction{
		ID:       uuid.NewString(),
		Type:     tt,
		Amount:   amt,
		Merchant: *merchant,
		Category: cat,
		Date:     *date,
		Note:     *note,
	}

	ctx := logger.WithContext(context.Background(), log)

	s := openStore(log, *dbPath)
	defer s.Close()

	if err := s.Append(ctx, tx); err != nil {
		log.Fatal().Err(err).Msg("Failed to save transaction")
	}
	fmt.Printf("Recorded transaction %s\n", tx.ID)
}

func runList(log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath(), "Path to the ledger database")
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)

	s := openStore(log, *dbPath)
	defer s.Close()

	txs, err := s.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	for _, tx := range txs {
		sign := "-"
		if tx.Type == taxonomy.Income {
			sign = "+"
		}
		fmt.Printf("%s  %s%s  %s (%s)  %s\n", tx.Date, sign, tx.Amount.StringFixed(2), tx.Merchant, tx.Category, tx.ID)
	}
	fmt.Printf("%d transaction(s)\n", len(txs))
}

func runSummary(log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	period := fs.String("period", string(report.PeriodMonth), "Grouping period: day, month or year")
	dbPath := fs.String("db", defaultDBPath(), "Path to the ledger database")
	fs.Parse(os.Args[2:])

	p := report.Period(*period)
	if !p.Valid() {
		log.Fatal().Str("period", *period).Msg("Period must be day, month or year")
	}

	ctx := logger.WithContext(context.Background(), log)

	s := openStore(log, *dbPath)
	defer s.Close()

	txs, err := s.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	for _, g := range report.Aggregate(txs, p) {
		fmt.Printf("%s  收入 %s  支出 %s  (%d笔)\n",
			g.Title, g.TotalIncome.StringFixed(2), g.TotalExpense.StringFixed(2), len(g.Transactions))
	}
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "Output file (defaults to stdout)")
	dbPath := fs.String("db", defaultDBPath(), "Path to the ledger database")
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)

	s := openStore(log, *dbPath)
	defer s.Close()

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Str("out", *out).Msg("Failed to create output file")
		}
		defer f.Close()
		w = f
	}

	if err := s.ExportJSON(ctx, w); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	if *out != "" {
		fmt.Printf("Exported ledger to %s\n", *out)
	}
}

func runImport(log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "Backup file to import")
	dbPath := fs.String("db", defaultDBPath(), "Path to the ledger database")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to open backup file")
	}
	defer f.Close()

	ctx := logger.WithContext(context.Background(), log)

	s := openStore(log, *dbPath)
	defer s.Close()

	count, err := s.ImportJSON(ctx, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}
	fmt.Printf("Imported %d transaction(s), previous ledger replaced\n", count)
}

func mimeTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
