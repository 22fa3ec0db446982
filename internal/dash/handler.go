package dash

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/technotes/internal/auth"
	"github.com/nao1215/technotes/internal/notes"
	"github.com/nao1215/technotes/internal/users"
	"github.com/nao1215/technotes/pkg/middleware"
)

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Persist  bool   `json:"persist"`
}

// handleLoginStatus は現在のログイン状態を返すハンドラを返す。
// ガードに拒否された場合のリダイレクト先でもあり、fromをそのまま返す。
func (s *Server) handleLoginStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"loggedIn": s.app.Session.HasToken(),
			"from":     c.Query("from"),
			"auth":     s.app.Session.Auth(),
		})
	}
}

// handleLogin はログインして一覧をプリフェッチするハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}

		a, err := s.app.Auth.Login(c.Request.Context(), auth.Credentials{
			Username: req.Username,
			Password: req.Password,
			Persist:  req.Persist,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		if err := s.app.Prefetch(c.Request.Context()); err != nil {
			s.logger.WarnContext(c.Request.Context(), "プリフェッチに失敗", "error", err)
		}
		c.JSON(http.StatusOK, a)
	}
}

// handleLogout はログアウトするハンドラを返す。APIが失敗してもセッションは破棄される。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.app.Auth.Logout(c.Request.Context()); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ログアウトしました"})
	}
}

// handleWelcome はログイン中のユーザー情報を返すハンドラを返す。
func (s *Server) handleWelcome() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, _ := middleware.GetAuth(c)
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome " + a.Username + "!",
			"auth":    a,
		})
	}
}

// forceParam は ?force= の値を返す。
func forceParam(c *gin.Context) bool {
	force, _ := strconv.ParseBool(c.Query("force"))
	return force
}

// handleListNotes はノート一覧と件数を返すハンドラを返す。?force=true でキャッシュを使わずに再取得する。
func (s *Server) handleListNotes() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := s.app.Notes.GetNotes(c.Request.Context(), forceParam(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notes": st.SelectAll(), "count": st.Len()})
	}
}

// handleGetNote は一覧キャッシュからIDでノートを選択して返すハンドラを返す。
func (s *Server) handleGetNote() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := s.app.Notes.GetNotes(c.Request.Context(), false); err != nil {
			s.respondError(c, err)
			return
		}
		note, ok := s.app.Notes.SelectByID(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "ノートが見つかりません"})
			return
		}
		c.JSON(http.StatusOK, note)
	}
}

// handleCreateNote はノートを作成するハンドラを返す。
func (s *Server) handleCreateNote() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in notes.NewNote
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBadRequest(c, err)
			return
		}
		msg, err := s.app.Notes.AddNewNote(c.Request.Context(), in)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// handleUpdateNote はノートを更新するハンドラを返す。
func (s *Server) handleUpdateNote() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in notes.UpdateNote
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBadRequest(c, err)
			return
		}
		in.ID = c.Param("id")
		msg, err := s.app.Notes.UpdateNote(c.Request.Context(), in)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

// handleDeleteNote はノートを削除するハンドラを返す。
func (s *Server) handleDeleteNote() gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := s.app.Notes.DeleteNote(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

// handleListUsers はユーザー一覧と件数を返すハンドラを返す。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := s.app.Users.GetUsers(c.Request.Context(), forceParam(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": st.SelectAll(), "count": st.Len()})
	}
}

// handleGetUser は一覧キャッシュからIDでユーザーを選択して返すハンドラを返す。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := s.app.Users.GetUsers(c.Request.Context(), false); err != nil {
			s.respondError(c, err)
			return
		}
		user, ok := s.app.Users.SelectByID(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "ユーザーが見つかりません"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// handleCreateUser はユーザーを作成するハンドラを返す。
func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in users.NewUser
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBadRequest(c, err)
			return
		}
		msg, err := s.app.Users.AddNewUser(c.Request.Context(), in)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// handleUpdateUser はユーザーを更新するハンドラを返す。
func (s *Server) handleUpdateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in users.UpdateUser
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBadRequest(c, err)
			return
		}
		in.ID = c.Param("id")
		msg, err := s.app.Users.UpdateUser(c.Request.Context(), in)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

// handleDeleteUser はユーザーを削除するハンドラを返す。
func (s *Server) handleDeleteUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := s.app.Users.DeleteUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}
