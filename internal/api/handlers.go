package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ishangarg01/cmd-gen/internal/fileutil"
	"github.com/ishangarg01/cmd-gen/internal/registry"
)

func (s *Server) handleRules(c *gin.Context) {
	rules := s.registry.Rules()
	Success(c, gin.H{
		"total": len(rules),
		"rules": rules,
	})
}

func (s *Server) handleBuiltinRules(c *gin.Context) {
	s.handleRulesBySource(c, registry.SourceBuiltin)
}

func (s *Server) handleUserRules(c *gin.Context) {
	s.handleRulesBySource(c, registry.SourceUser)
}

func (s *Server) handleRulesBySource(c *gin.Context, source registry.Source) {
	var filtered []registry.RiskRule
	for _, r := range s.registry.Rules() {
		if r.Source == source {
			filtered = append(filtered, r)
		}
	}
	Success(c, gin.H{
		"total": len(filtered),
		"rules": filtered,
	})
}

func (s *Server) handleReload(c *gin.Context) {
	if err := s.registry.ReloadUserRules(); err != nil {
		Success(c, gin.H{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	Success(c, gin.H{
		"status":     "reloaded",
		"rule_count": s.registry.RuleCount(),
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		Error(c, http.StatusBadRequest, "Failed to read body")
		return
	}

	if err := s.registry.GetLoader().ValidateYAML(body); err != nil {
		Success(c, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	Success(c, gin.H{"valid": true})
}

func (s *Server) handleListFiles(c *gin.Context) {
	files, err := s.registry.GetLoader().ListUserRuleFiles()
	if err != nil {
		// Internal paths stay out of the response.
		log.Error("failed to list rule files: %v", err)
		Error(c, http.StatusInternalServerError, "Failed to list rule files")
		return
	}
	Success(c, gin.H{
		"directory": s.registry.GetLoader().GetUserDir(),
		"files":     files,
	})
}

// MaxRuleFileSize is the maximum allowed rule file size (1MB).
const MaxRuleFileSize = 1 << 20

func (s *Server) handleAddFile(c *gin.Context) {
	if c.Request.ContentLength > MaxRuleFileSize {
		Error(c, http.StatusRequestEntityTooLarge, "Rule file too large (max 1MB)")
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		Error(c, http.StatusBadRequest, "Failed to read body")
		return
	}
	if len(body) > MaxRuleFileSize {
		Error(c, http.StatusRequestEntityTooLarge, "Rule file too large (max 1MB)")
		return
	}

	if err := s.registry.GetLoader().ValidateYAML(body); err != nil {
		Success(c, gin.H{
			"status": "error",
			"error":  "Validation failed: " + err.Error(),
		})
		return
	}

	filename := c.Query("filename")
	if filename == "" {
		filename = "custom.yaml"
	}
	if !strings.HasSuffix(filename, ".yaml") && !strings.HasSuffix(filename, ".yml") {
		filename += ".yaml"
	}

	// SECURITY: reject filenames that would land outside the rules dir.
	destPath, err := s.registry.GetLoader().ValidatePathInDirectory(filename)
	if err != nil {
		Error(c, http.StatusBadRequest, "Invalid filename")
		return
	}

	userDir := s.registry.GetLoader().GetUserDir()
	if err := fileutil.SecureMkdirAll(userDir); err != nil {
		log.Error("failed to create rules directory: %v", err)
		Error(c, http.StatusInternalServerError, "Failed to create rules directory")
		return
	}
	if err := fileutil.SecureWriteFile(destPath, body); err != nil {
		log.Error("failed to write rule file: %v", err)
		Error(c, http.StatusInternalServerError, "Failed to write rule file")
		return
	}

	if err := s.registry.ReloadUserRules(); err != nil {
		log.Warn("failed to reload after adding file: %v", err)
	}

	Success(c, gin.H{
		"status":     "added",
		"path":       destPath,
		"rule_count": s.registry.RuleCount(),
	})
}

func (s *Server) handleDeleteFile(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		Error(c, http.StatusBadRequest, "Filename required")
		return
	}

	if err := s.registry.GetLoader().RemoveRuleFile(filename); err != nil {
		log.Error("failed to remove rule file %s: %v", filename, err)
		Error(c, http.StatusInternalServerError, "Failed to remove rule file")
		return
	}

	if err := s.registry.ReloadUserRules(); err != nil {
		log.Warn("failed to reload rules after delete: %v", err)
	}
	Success(c, gin.H{"status": "deleted", "filename": filename})
}

// AuditRequest is the dry-run audit request body.
type AuditRequest struct {
	Command string `json:"command" binding:"required"`
}

// handleAudit classifies a command and reports its placeholders without
// prompting anyone. Commands with placeholders are never marked allowed
// here: resolution needs an interactive session.
func (s *Server) handleAudit(c *gin.Context) {
	var req AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "command is required")
		return
	}

	verdict, err := s.classifier.Classify(req.Command)
	if err != nil {
		Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	phs := s.extractor.Extract(req.Command)
	names := make([]string, 0, len(phs))
	for _, p := range phs {
		names = append(names, p.Name)
	}

	resp := gin.H{
		"allowed":      verdict.Allowed && len(phs) == 0 && !verdict.Warned(),
		"placeholders": names,
	}
	if !verdict.Allowed {
		resp["reason"] = verdict.Reason
		if verdict.Rule != nil {
			resp["rule"] = verdict.Rule.Name
		}
	} else if verdict.Warned() {
		resp["warning"] = verdict.Reason
	}
	if verdict.Allowed && len(phs) > 0 {
		resp["note"] = "placeholders require an interactive audit"
	}
	Success(c, resp)
}

// HistoryQuery bounds history reads.
type HistoryQuery struct {
	Limit      int  `form:"limit" binding:"omitempty,min=1,max=1000"`
	DeniedOnly bool `form:"denied_only"`
}

func (s *Server) handleHistory(c *gin.Context) {
	var query HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = 100
	}

	var (
		records any
		err     error
	)
	if query.DeniedOnly {
		records, err = s.store.ListDenied(c.Request.Context(), query.Limit)
	} else {
		records, err = s.store.ListRecent(c.Request.Context(), query.Limit)
	}
	if err != nil {
		log.Error("failed to read history: %v", err)
		Error(c, http.StatusInternalServerError, "Failed to read history")
		return
	}
	Success(c, records)
}

func (s *Server) handleHistoryStats(c *gin.Context) {
	stats, err := s.store.GetStats(c.Request.Context())
	if err != nil {
		log.Error("failed to read history stats: %v", err)
		Error(c, http.StatusInternalServerError, "Failed to read history stats")
		return
	}
	Success(c, stats)
}
