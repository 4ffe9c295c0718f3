package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/device"
	"rollcall/internal/geo"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/session"
)

// Rejection messages sent to student devices. The client classifies on these
// strings for older payloads, so changes here must stay in step with the
// structured codes below.
const (
	msgAlreadySubmitted = "Student has already submitted attendance for this session"
	msgDeviceReused     = "This device has already been used for attendance"
)

type api struct {
	cfg        config.App
	attendance *attendance.Service
	sessions   *session.Service
	records    *attendance.Repository
	roster     *roster.Repository
	accounts   *roster.Service
	queue      queue.Queue
}

func (a *api) submitAttendance(c *gin.Context) {
	var req struct {
		MatricNo    string      `json:"matric_no" binding:"required"`
		SessionCode string      `json:"session_code" binding:"required"`
		Level       int         `json:"level" binding:"required"`
		Lat         float64     `json:"lat"`
		Lng         float64     `json:"lng"`
		Accuracy    float64     `json:"accuracy"`
		DeviceInfo  device.Info `json:"device_info"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	rec, err := a.attendance.Submit(c.Request.Context(), attendance.Submission{
		MatricNo:    req.MatricNo,
		SessionCode: req.SessionCode,
		Level:       req.Level,
		Location:    geo.Sample{Lat: req.Lat, Lng: req.Lng, Accuracy: req.Accuracy},
		Device:      req.DeviceInfo,
	})
	if err != nil {
		a.rejectSubmission(c, err)
		return
	}

	if err := a.queue.Publish(c.Request.Context(), queue.Message{Type: "submission", Body: []byte(rec.SessionID)}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Attendance recorded",
		"record":  rec,
	})
}

func (a *api) rejectSubmission(c *gin.Context, err error) {
	var dup *attendance.AlreadySubmittedError
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"code":    "duplicate_submission",
			"error":   msgAlreadySubmitted,
			"existing_record": gin.H{
				"status":       dup.Existing.Status,
				"submitted_at": dup.Existing.SubmittedAt,
			},
		})
	case errors.Is(err, attendance.ErrDeviceReused):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"code":    "device_reused",
			"error":   msgDeviceReused,
		})
	case errors.Is(err, attendance.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No active session found for this code"})
	case errors.Is(err, attendance.ErrSessionExpired):
		c.JSON(http.StatusGone, gin.H{"success": false, "error": "This attendance session has expired"})
	case errors.Is(err, attendance.ErrOutsideGeofence):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, attendance.ErrUnknownStudent):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Matric number not recognized"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	}
}

func (a *api) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	lect, err := a.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, roster.ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		return
	}

	tokens, err := auth.Issue(lect.ID, lect.Role, lect.Name, a.cfg.JWTIssuer, a.cfg.JWTSigningKey, a.cfg.AccessTTL, a.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token issue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

func (a *api) startSession(c *gin.Context) {
	var req struct {
		CourseCode      string  `json:"course_code" binding:"required"`
		Level           int     `json:"level" binding:"required"`
		Lat             float64 `json:"lat"`
		Lng             float64 `json:"lng"`
		Accuracy        float64 `json:"accuracy"`
		RadiusM         float64 `json:"radius_m"`
		DurationMinutes int     `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if req.RadiusM <= 0 {
		req.RadiusM = a.cfg.DefaultRadiusM
	}

	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)

	anchor := geo.Sample{Lat: req.Lat, Lng: req.Lng, Accuracy: geo.ClampAccuracy(req.Accuracy)}
	sess, err := a.sessions.Start(c.Request.Context(), req.CourseCode, req.Level, anchor,
		req.RadiusM, time.Duration(req.DurationMinutes)*time.Minute, claims.Subject)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (a *api) listSessions(c *gin.Context) {
	sessions, err := a.sessions.ListOpen(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (a *api) closeSession(c *gin.Context) {
	if err := a.sessions.Close(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

func (a *api) liveSession(c *gin.Context) {
	snap, err := a.attendance.Live(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// listSessionRecords exports every submission in a session for reports.
func (a *api) listSessionRecords(c *gin.Context) {
	id := c.Param("id")
	if _, err := a.sessions.ByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	recs, err := a.records.ListBySession(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (a *api) listCourses(c *gin.Context) {
	courses, err := a.roster.ListCourses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (a *api) createCourse(c *gin.Context) {
	var req struct {
		Code  string `json:"code" binding:"required"`
		Title string `json:"title" binding:"required"`
		Level int    `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)

	course, err := a.roster.InsertCourse(c.Request.Context(), roster.Course{
		Code: req.Code, Title: req.Title, Level: req.Level, LecturerID: claims.Subject,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (a *api) listStudents(c *gin.Context) {
	level := 0
	if v, ok := c.GetQuery("level"); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			level = parsed
		}
	}
	students, err := a.roster.ListStudents(c.Request.Context(), level)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (a *api) upsertStudent(c *gin.Context) {
	var req struct {
		MatricNo string `json:"matric_no" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email"`
		Level    int    `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	student, err := a.roster.UpsertStudent(c.Request.Context(), roster.Student{
		MatricNo: req.MatricNo, Name: req.Name, Email: req.Email, Level: req.Level,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, student)
}

func (a *api) listLecturers(c *gin.Context) {
	lecturers, err := a.roster.ListLecturers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lecturers": lecturers})
}

func (a *api) createLecturer(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name" binding:"required"`
		Role     string `json:"role"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	lect, err := a.accounts.CreateLecturer(c.Request.Context(), req.Email, req.Name, req.Role, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, lect)
}

func (a *api) listFAQs(c *gin.Context) {
	faqs, err := a.roster.ListFAQs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"faqs": faqs})
}

func (a *api) createFAQ(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
		Answer   string `json:"answer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	faq, err := a.roster.InsertFAQ(c.Request.Context(), roster.FAQ{Question: req.Question, Answer: req.Answer})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, faq)
}

func (a *api) purgeSemester(c *gin.Context) {
	var req struct {
		Before string `json:"before" binding:"required"` // RFC 3339 date
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	cutoff, err := time.Parse(time.RFC3339, req.Before)
	if err != nil {
		if cutoff, err = time.Parse("2006-01-02", req.Before); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "before must be an RFC 3339 timestamp or date"})
			return
		}
	}

	res, err := a.roster.PurgeSemester(c.Request.Context(), cutoff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	log.Printf("semester purge before %s: %d submissions, %d sessions", cutoff.Format(time.DateOnly), res.Submissions, res.Sessions)
	c.JSON(http.StatusOK, res)
}
