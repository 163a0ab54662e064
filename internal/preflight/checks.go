package preflight

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"healthify/internal/config"
	"healthify/internal/database"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before the server starts accepting chats
type Checker struct {
	cfg   *config.Config
	db    *database.DB      // nil unless sessions live in SQLite
	mongo *database.MongoDB // nil unless MONGODB_URI connected
}

// NewChecker creates a new preflight checker. db and mongo may be nil.
func NewChecker(cfg *config.Config, db *database.DB, mongo *database.MongoDB) *Checker {
	return &Checker{cfg: cfg, db: db, mongo: mongo}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkKnowledgeSource(),
		c.checkSessionStore(),
		c.checkProviderCredentials(),
		c.checkPromptsFile(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkKnowledgeSource verifies the knowledge base file is readable.
// A missing source only warns: the server still answers with the fallback.
func (c *Checker) checkKnowledgeSource() CheckResult {
	const name = "Knowledge Source"
	path := c.cfg.KnowledgeBasePath

	info, err := os.Stat(path)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  "warning",
			Message: fmt.Sprintf("%s not readable, starting with an empty corpus", path),
			Error:   err,
		}
	}
	if info.IsDir() {
		return CheckResult{Name: name, Status: "fail", Message: fmt.Sprintf("%s is a directory", path)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
	default:
		return CheckResult{
			Name:    name,
			Status:  "fail",
			Message: fmt.Sprintf("unsupported format %q (want .pdf, .txt or .md)", filepath.Ext(path)),
		}
	}

	return CheckResult{
		Name:    name,
		Status:  "pass",
		Message: fmt.Sprintf("%s (%d bytes)", path, info.Size()),
	}
}

// checkSessionStore verifies the configured session backend is reachable and migrated
func (c *Checker) checkSessionStore() CheckResult {
	const name = "Session Store"

	switch c.cfg.SessionStore {
	case config.StoreSQLite:
		if c.db == nil {
			return CheckResult{Name: name, Status: "fail", Message: "SQLite store selected but not opened"}
		}
		if err := c.db.Ping(); err != nil {
			return CheckResult{Name: name, Status: "fail", Message: "Cannot connect to SQLite", Error: err}
		}
		for _, table := range []string{"active_sessions", "session_history"} {
			var count int
			err := c.db.QueryRow(
				"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
			).Scan(&count)
			if err != nil || count == 0 {
				return CheckResult{
					Name:    name,
					Status:  "fail",
					Message: fmt.Sprintf("Required table '%s' not found", table),
					Error:   err,
				}
			}
		}
		return CheckResult{Name: name, Status: "pass", Message: "SQLite schema present"}

	case config.StoreMongo:
		if c.mongo == nil {
			return CheckResult{Name: name, Status: "fail", Message: "MongoDB store selected but not connected"}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.mongo.Ping(ctx); err != nil {
			return CheckResult{Name: name, Status: "fail", Message: "Cannot reach MongoDB", Error: err}
		}
		return CheckResult{Name: name, Status: "pass", Message: "MongoDB reachable"}

	default:
		return CheckResult{Name: name, Status: "warning", Message: "Sessions kept in memory (lost on restart)"}
	}
}

// checkProviderCredentials warns when a provider key is missing
func (c *Checker) checkProviderCredentials() CheckResult {
	var missing []string
	if c.cfg.LLMAPIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if c.cfg.EmbeddingAPIKey == "" {
		missing = append(missing, "EMBEDDING_API_KEY")
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:    "Provider Credentials",
			Status:  "warning",
			Message: fmt.Sprintf("Missing environment variables: %v", missing),
		}
	}

	return CheckResult{
		Name:    "Provider Credentials",
		Status:  "pass",
		Message: fmt.Sprintf("chat=%s embedding=%s", c.cfg.LLMModel, c.cfg.EmbeddingModel),
	}
}

// checkPromptsFile verifies PROMPTS_FILE when one is configured
func (c *Checker) checkPromptsFile() CheckResult {
	if c.cfg.PromptsFile == "" {
		return CheckResult{Name: "Prompts", Status: "pass", Message: "Using built-in prompts"}
	}
	if _, err := os.Stat(c.cfg.PromptsFile); err != nil {
		return CheckResult{
			Name:    "Prompts",
			Status:  "fail",
			Message: fmt.Sprintf("Prompts file %s not found", c.cfg.PromptsFile),
			Error:   err,
		}
	}
	return CheckResult{Name: "Prompts", Status: "pass", Message: c.cfg.PromptsFile}
}
