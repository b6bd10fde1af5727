package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/statbot-io/statbot/internal/errors"
	"github.com/statbot-io/statbot/internal/model"
	"github.com/statbot-io/statbot/internal/query"
	"github.com/statbot-io/statbot/internal/recalc"
)

func (s *Service) initRouter() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/v1")
	api.POST("/messages", s.handleIngest)

	api.GET("/stats/user", s.handleUserStats)
	api.GET("/stats/channel", s.handleChannelStats)
	api.GET("/stats/threads", s.handleThreadStats)
	api.GET("/stats/server/channels", s.handleServerChannels)
	api.GET("/stats/server/users", s.handleServerUsers)

	api.POST("/recalculate/channel", s.handleRecalcChannel)
	api.POST("/recalculate/guild", s.handleRecalcGuild)
	api.POST("/recalculate/global", s.handleRecalcGlobal)
}

// POST /api/v1/messages
func (s *Service) handleIngest(c *gin.Context) {
	var msg model.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		errors.Err(c, errors.Validation("malformed message event"))
		return
	}
	if msg.ChannelID == 0 || msg.AuthorID == 0 {
		errors.Err(c, errors.InvalidArg("channel_id/author_id"))
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if err := s.recorder.Record(c.Request.Context(), &msg); err != nil {
		errors.Err(c, err)
		return
	}
	s.source.Append(&msg)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/v1/stats/user
func (s *Service) handleUserStats(c *gin.Context) {
	userID, err := int64Query(c, "user_id", true)
	if err != nil {
		errors.Err(c, err)
		return
	}
	guildID, err := int64Query(c, "guild_id", false)
	if err != nil {
		errors.Err(c, err)
		return
	}
	opts, err := s.queryOptions(c)
	if err != nil {
		errors.Err(c, err)
		return
	}
	res, err := s.queries.User(c.Request.Context(), guildID, userID, opts)
	if err != nil {
		errors.Err(c, err)
		return
	}
	s.respond(c, "user", res)
}

// GET /api/v1/stats/channel
func (s *Service) handleChannelStats(c *gin.Context) {
	channelID, err := int64Query(c, "channel_id", true)
	if err != nil {
		errors.Err(c, err)
		return
	}
	threadID, err := int64Query(c, "thread_id", false)
	if err != nil {
		errors.Err(c, err)
		return
	}
	guildID, err := int64Query(c, "guild_id", false)
	if err != nil {
		errors.Err(c, err)
		return
	}
	opts, err := s.queryOptions(c)
	if err != nil {
		errors.Err(c, err)
		return
	}
	target := model.Target{GuildID: guildID, ChannelID: channelID, ThreadID: threadID}
	res, err := s.queries.Channel(c.Request.Context(), target, opts)
	if err != nil {
		errors.Err(c, err)
		return
	}
	s.respond(c, "channel", res)
}

// GET /api/v1/stats/threads
func (s *Service) handleThreadStats(c *gin.Context) {
	channelID, err := int64Query(c, "channel_id", true)
	if err != nil {
		errors.Err(c, err)
		return
	}
	opts, err := s.queryOptions(c)
	if err != nil {
		errors.Err(c, err)
		return
	}
	res, err := s.queries.Threads(c.Request.Context(), channelID, opts)
	if err != nil {
		errors.Err(c, err)
		return
	}
	s.respond(c, "threads", res)
}

// GET /api/v1/stats/server/channels
func (s *Service) handleServerChannels(c *gin.Context) {
	guildID, err := int64Query(c, "guild_id", true)
	if err != nil {
		errors.Err(c, err)
		return
	}
	opts, err := s.queryOptions(c)
	if err != nil {
		errors.Err(c, err)
		return
	}
	res, err := s.queries.ServerChannels(c.Request.Context(), guildID, opts)
	if err != nil {
		errors.Err(c, err)
		return
	}
	s.respond(c, "server_channels", res)
}

// GET /api/v1/stats/server/users
func (s *Service) handleServerUsers(c *gin.Context) {
	guildID, err := int64Query(c, "guild_id", true)
	if err != nil {
		errors.Err(c, err)
		return
	}
	opts, err := s.queryOptions(c)
	if err != nil {
		errors.Err(c, err)
		return
	}
	res, err := s.queries.ServerUsers(c.Request.Context(), guildID, opts)
	if err != nil {
		errors.Err(c, err)
		return
	}
	s.respond(c, "server_users", res)
}

type recalcRequest struct {
	ChannelID      int64 `json:"channel_id"`
	GuildID        int64 `json:"guild_id"`
	IncludeThreads bool  `json:"include_threads"`
	OnlyThreads    bool  `json:"only_threads"`
	SinceLast      bool  `json:"since_last"`
}

func (r recalcRequest) fanout() recalc.FanoutOptions {
	return recalc.FanoutOptions{
		IncludeThreads: r.IncludeThreads,
		OnlyThreads:    r.OnlyThreads,
		SinceLast:      r.SinceLast,
	}
}

// POST /api/v1/recalculate/channel
func (s *Service) handleRecalcChannel(c *gin.Context) {
	var req recalcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.Err(c, errors.Validation("malformed recalculate request"))
		return
	}
	if req.ChannelID == 0 {
		errors.Err(c, errors.InvalidArg("channel_id"))
		return
	}
	ch, err := s.dir.Channel(c.Request.Context(), req.ChannelID)
	if err != nil {
		errors.Err(c, err)
		return
	}
	n, err := s.recalc.EnqueueChannel(c.Request.Context(), ch, req.fanout())
	if err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "tasks": n})
}

// POST /api/v1/recalculate/guild
func (s *Service) handleRecalcGuild(c *gin.Context) {
	var req recalcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.Err(c, errors.Validation("malformed recalculate request"))
		return
	}
	if req.GuildID == 0 {
		errors.Err(c, errors.InvalidArg("guild_id"))
		return
	}
	n, err := s.recalc.EnqueueGuild(c.Request.Context(), req.GuildID, req.fanout())
	if err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "tasks": n})
}

// POST /api/v1/recalculate/global
func (s *Service) handleRecalcGlobal(c *gin.Context) {
	var req recalcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.Err(c, errors.Validation("malformed recalculate request"))
		return
	}
	n, err := s.recalc.EnqueueAll(c.Request.Context(), req.fanout())
	if err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "tasks": n})
}

func (s *Service) queryOptions(c *gin.Context) (query.Options, error) {
	var opts query.Options

	stat, err := model.ParseStatistic(c.Query("stat"))
	if err != nil {
		return opts, errors.Validation(err.Error())
	}
	privacy, err := query.ParsePrivacyMode(c.Query("privacy"))
	if err != nil {
		return opts, err
	}
	bots, err := query.ParseBotMode(c.Query("bots"))
	if err != nil {
		return opts, err
	}
	top, err := intQuery(c, "top")
	if err != nil {
		return opts, err
	}

	aMonth, err := intQuery(c, "after_month")
	if err != nil {
		return opts, err
	}
	aYear, err := intQuery(c, "after_year")
	if err != nil {
		return opts, err
	}
	bMonth, err := intQuery(c, "before_month")
	if err != nil {
		return opts, err
	}
	bYear, err := intQuery(c, "before_year")
	if err != nil {
		return opts, err
	}
	rng, err := query.ParseDateRange(aMonth, aYear, bMonth, bYear, s.queries.Now(), s.queries.Timezone())
	if err != nil {
		return opts, err
	}

	opts.Statistic = stat
	opts.Privacy = privacy
	opts.Bots = bots
	opts.TopN = top
	opts.Range = rng
	opts.IncludeThreads = boolQuery(c, "threads")
	return opts, nil
}

func (s *Service) respond(c *gin.Context, view string, res *query.Result) {
	if c.Query("format") != "csv" {
		c.JSON(http.StatusOK, res)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/csv; charset=utf-8")
	c.Writer.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=stats_%s_%s.csv", view, time.Now().Format("20060102_150405")))
	w := csv.NewWriter(c.Writer)
	w.Write([]string{"Label", res.Statistic.TitleWord(), "Merged"})
	for _, row := range res.Rows {
		w.Write([]string{
			row.Label,
			strconv.FormatInt(row.Sum, 10),
			strconv.Itoa(row.AggCount),
		})
	}
	w.Flush()
}

func int64Query(c *gin.Context, name string, required bool) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		if required {
			return 0, errors.InvalidArg(name)
		}
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.InvalidArg(name)
	}
	return v, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidArg(name)
	}
	return v, nil
}

func boolQuery(c *gin.Context, name string) bool {
	switch c.Query(name) {
	case "1", "true", "yes":
		return true
	}
	return false
}
