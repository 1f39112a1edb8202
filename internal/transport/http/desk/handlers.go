package deskhttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tradedesk/internal/catalog"
	"tradedesk/internal/commit"
	"tradedesk/internal/gateway/backend"
	"tradedesk/internal/ledger"
	"tradedesk/internal/logger"

	"github.com/gin-gonic/gin"
)

func (s *Server) getOrders(c *gin.Context) {
	criteria := ledger.Criteria{
		Pair:     c.Query("pair"),
		Exchange: c.Query("exchange"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
	}
	if v := strings.TrimSpace(c.Query("active_only")); v != "" {
		criteria.ActiveOnly, _ = strconv.ParseBool(v)
	}
	ledgers, err := s.desk.View(c.Request.Context(), criteria)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if ledgers == nil {
		ledgers = []ledger.SymbolLedger{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": ledgers})
}

func (s *Server) getStatus(c *gin.Context) {
	st, err := s.desk.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": st})
}

func (s *Server) getCatalog(c *gin.Context) {
	exchanges, symbols := s.desk.CatalogSets()
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"exchanges": exchanges,
		"symbols":   symbols,
	}})
}

// postCatalog saves edited catalog lists. Omitted lists stay as they are,
// so exchanges and symbols can be edited independently.
func (s *Server) postCatalog(c *gin.Context) {
	var body struct {
		Exchanges []catalog.Record `json:"exchanges"`
		Symbols   []catalog.Record `json:"symbols"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid JSON body"})
		return
	}
	if body.Exchanges == nil && body.Symbols == nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "nothing to update"})
		return
	}
	if err := s.desk.UpdateCatalog(c.Request.Context(), body.Exchanges, body.Symbols); err != nil {
		logger.Warnf("desk http: catalog update failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": err.Error()})
		return
	}
	s.getCatalog(c)
}

func (s *Server) postRefresh(c *gin.Context) {
	if err := s.desk.Load(c.Request.Context()); err != nil {
		logger.Warnf("desk http: refresh failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "ledger reloaded"})
}

// postPersist re-pushes the current snapshot to the backend. The retry
// path for a confirm that applied locally but failed to persist.
func (s *Server) postPersist(c *gin.Context) {
	if err := s.desk.Persist(c.Request.Context()); err != nil {
		logger.Warnf("desk http: persist failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "snapshot persisted"})
}

// entryRef addresses one active entry.
type entryRef struct {
	Symbol  string `json:"symbol"`
	Kind    string `json:"type"`
	ID      int    `json:"id"`
	Message string `json:"message"`
}

func (s *Server) postEditBegin(c *gin.Context) {
	var ref entryRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid JSON body"})
		return
	}
	fields, err := s.desk.BeginEdit(c.Request.Context(), ref.Symbol, ledger.Kind(ref.Kind), ref.ID)
	if err != nil {
		writeDeskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"state": "editing", "fields": fields}})
}

func (s *Server) postEditNew(c *gin.Context) {
	fields, err := s.desk.BeginNew(c.Request.Context())
	if err != nil {
		writeDeskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"state": "editing", "fields": fields}})
}

func (s *Server) postEditFields(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid JSON body"})
		return
	}
	if err := s.desk.SetFields(c.Request.Context(), values); err != nil {
		writeDeskError(c, err)
		return
	}
	s.getEdit(c)
}

func (s *Server) getEdit(c *gin.Context) {
	state, fields, err := s.desk.EditState(c.Request.Context())
	if err != nil {
		writeDeskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"state": state, "fields": fields}})
}

func (s *Server) postEditCancel(c *gin.Context) {
	if err := s.desk.CancelEdit(c.Request.Context()); err != nil {
		writeDeskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "edit cancelled"})
}

func (s *Server) postEditSubmit(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	_ = c.ShouldBindJSON(&body)
	cmd, err := s.desk.SubmitEdit(c.Request.Context(), body.Message)
	if err != nil {
		writeDeskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": cmd})
}

func (s *Server) postClose(c *gin.Context) {
	var ref entryRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid JSON body"})
		return
	}
	cmd, err := s.desk.StageClose(c.Request.Context(), ref.Symbol, ledger.Kind(ref.Kind), ref.ID, ref.Message)
	if err != nil {
		writeDeskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": cmd})
}

func (s *Server) getPending(c *gin.Context) {
	cmd, ok := s.desk.Pending()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": cmd})
}

// postConfirm executes the staged command. A failed persistence round-trip
// still reports the command because the mutation was applied locally; the
// persisted flag tells the operator whether the backend has it.
func (s *Server) postConfirm(c *gin.Context) {
	cmd, err := s.desk.Confirm(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": cmd, "persisted": true})
		return
	}
	if errors.Is(err, commit.ErrNothingStaged) {
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "nothing staged"})
		return
	}
	var syncErr *backend.SyncError
	if errors.As(err, &syncErr) {
		logger.Warnf("desk http: confirm applied locally but not persisted: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": cmd, "persisted": false, "message": err.Error()})
		return
	}
	writeDeskError(c, err)
}

func (s *Server) postCancel(c *gin.Context) {
	if !s.desk.CancelStaged() {
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "nothing staged"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "staged command cancelled"})
}

func (s *Server) getAnalytics(c *gin.Context) {
	metrics, err := s.analytics.FetchAnalytics(c.Request.Context())
	if err != nil {
		logger.Warnf("desk http: analytics fetch failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": metrics})
}

func writeDeskError(c *gin.Context, err error) {
	var vErr *ledger.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"message": vErr.Error(),
			"fields":  vErr.Fields,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
}
