package storehttp

import (
	"encoding/json"
	"io"
	"net/http"

	"tradedesk/internal/logger"
	"tradedesk/internal/store/snapshot"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 16 << 20

func (s *Server) getOrders(c *gin.Context) {
	s.getDocument(c, snapshot.DocOrders, json.RawMessage("[]"))
}

func (s *Server) getSymbols(c *gin.Context) {
	s.getDocument(c, snapshot.DocSymbols, json.RawMessage("[]"))
}

func (s *Server) getExchanges(c *gin.Context) {
	s.getDocument(c, snapshot.DocExchanges, json.RawMessage("[]"))
}

func (s *Server) getDocument(c *gin.Context, name string, empty json.RawMessage) {
	payload, ok, err := s.store.Get(c.Request.Context(), name)
	if err != nil {
		logger.Errorf("store: read %s failed: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "read failed"})
		return
	}
	if !ok {
		payload = empty
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": payload})
}

func (s *Server) postOrders(c *gin.Context) {
	s.putDocument(c, snapshot.DocOrders, "orders", ordersSchema)
}

func (s *Server) postSymbols(c *gin.Context) {
	s.putDocument(c, snapshot.DocSymbols, "symbols", catalogSchema)
}

func (s *Server) postExchanges(c *gin.Context) {
	s.putDocument(c, snapshot.DocExchanges, "exchanges", catalogSchema)
}

// putDocument unwraps {key: payload}, validates the payload against the
// document's schema, and replaces the stored document wholesale.
func (s *Server) putDocument(c *gin.Context, name, key string, schema *compiledSchema) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "read body failed"})
		return
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid JSON body"})
		return
	}
	payload, ok := wrapper[key]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "missing '" + key + "' field"})
		return
	}
	if err := schema.validate(payload); err != nil {
		logger.Warnf("store: %s payload rejected: %v", name, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if err := s.store.Put(c.Request.Context(), name, payload); err != nil {
		logger.Errorf("store: write %s failed: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "write failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": name + " saved"})
}

// getAnalytics returns the raw analytics snapshot as its producer wrote
// it, or an empty object before the first write.
func (s *Server) getAnalytics(c *gin.Context) {
	payload, ok, err := s.store.Get(c.Request.Context(), snapshot.DocAnalytics)
	if err != nil {
		logger.Errorf("store: read analytics failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "read failed"})
		return
	}
	if !ok {
		payload = json.RawMessage("{}")
	}
	c.Data(http.StatusOK, "application/json", payload)
}

func (s *Server) getStatus(c *gin.Context) {
	updated := make(map[string]int64, 4)
	for _, name := range []string{
		snapshot.DocOrders,
		snapshot.DocSymbols,
		snapshot.DocExchanges,
		snapshot.DocAnalytics,
	} {
		ts, err := s.store.UpdatedAt(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "status failed"})
			return
		}
		updated[name] = ts
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"updated_at": updated}})
}
