package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/expensetrack/splitdesk/internal/auth"
	"github.com/expensetrack/splitdesk/internal/balance"
	"github.com/expensetrack/splitdesk/internal/money"
	"github.com/expensetrack/splitdesk/internal/service"
)

// createSession parses the bearer credential and opens a new editor
// session for it. The engine fails closed here: no valid credential, no
// session.
func (s *Server) createSession(c *gin.Context) {
	cred, err := auth.FromBearer(c.GetHeader("Authorization"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"kind": "auth", "error": err.Error()})
		return
	}

	editor, err := service.NewEditor(s.upstream, cred)
	if err != nil {
		writeError(c, err)
		return
	}

	id := s.registry.add(editor)
	c.JSON(http.StatusCreated, gin.H{
		"sessionId": id,
		"username":  cred.Username,
	})
}

func (s *Server) endSession(c *gin.Context) {
	s.registry.remove(c.Param("sid"))
	c.Status(http.StatusNoContent)
}

func (s *Server) openGroup(c *gin.Context, editor *service.Editor) {
	var req struct {
		GroupID int64 `json:"groupId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation", "error": err.Error()})
		return
	}

	if err := editor.OpenGroup(c.Request.Context(), req.GroupID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, listView{
		GroupName: editor.GroupName(),
		Members:   editor.Members(),
		Expenses:  editor.Expenses(),
		HasMore:   editor.HasMore(),
	})
}

func (s *Server) listExpenses(c *gin.Context, editor *service.Editor) {
	c.JSON(http.StatusOK, listView{
		Expenses: editor.Expenses(),
		HasMore:  editor.HasMore(),
	})
}

func (s *Server) loadMore(c *gin.Context, editor *service.Editor) {
	if err := editor.LoadMore(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listView{
		Expenses: editor.Expenses(),
		HasMore:  editor.HasMore(),
	})
}

func (s *Server) newExpense(c *gin.Context, editor *service.Editor) {
	summary, err := editor.NewExpense()
	if err != nil {
		writeError(c, err)
		return
	}
	session, _ := editor.Session()
	c.JSON(http.StatusOK, renderTable(session, summary))
}

func (s *Server) openExpense(c *gin.Context, editor *service.Editor) {
	var req struct {
		ExpenseID int64 `json:"expenseId" binding:"required"`
		Edit      bool  `json:"edit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation", "error": err.Error()})
		return
	}

	summary, err := editor.OpenExpense(c.Request.Context(), req.ExpenseID, req.Edit)
	if err != nil {
		writeError(c, err)
		return
	}
	session, _ := editor.Session()
	c.JSON(http.StatusOK, renderTable(session, summary))
}

// setAmount binds the raw field text and parses it strictly: malformed
// input is rejected rather than coerced to zero.
func (s *Server) setAmount(c *gin.Context, editor *service.Editor) {
	var req struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation", "error": err.Error()})
		return
	}

	amount, err := money.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation", "error": err.Error()})
		return
	}

	summary, err := editor.SetAmount(amount)
	if err != nil {
		writeError(c, err)
		return
	}
	session, _ := editor.Session()
	c.JSON(http.StatusOK, renderTable(session, summary))
}

func (s *Server) setDescription(c *gin.Context, editor *service.Editor) {
	var req struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation", "error": err.Error()})
		return
	}
	if err := editor.SetDescription(req.Description); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) setOwed(c *gin.Context, editor *service.Editor) {
	s.setSplitField(c, editor, editor.SetOwed)
}

func (s *Server) setPaid(c *gin.Context, editor *service.Editor) {
	s.setSplitField(c, editor, editor.SetPaid)
}

func (s *Server) setSplitField(c *gin.Context, editor *service.Editor, apply func(string, float64) (balance.Summary, error)) {
	var req struct {
		Member string `json:"member" binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation", "error": err.Error()})
		return
	}

	amount, err := money.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation", "error": err.Error()})
		return
	}

	summary, err := apply(req.Member, amount)
	if err != nil {
		writeError(c, err)
		return
	}
	session, _ := editor.Session()
	c.JSON(http.StatusOK, renderTable(session, summary))
}

func (s *Server) submit(c *gin.Context, editor *service.Editor) {
	persisted, err := editor.Submit(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"expense": persisted,
		"list": listView{
			Expenses: editor.Expenses(),
			HasMore:  editor.HasMore(),
		},
	})
}

func (s *Server) closeEditor(c *gin.Context, editor *service.Editor) {
	editor.CloseEditor()
	c.Status(http.StatusNoContent)
}
