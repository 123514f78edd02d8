package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"traffic-count-api/middleware"
	"traffic-count-api/models"
	"traffic-count-api/services"
)

const (
	userCookie  = "u_cookie"
	magicCookie = "m_cookie"

	locationsCacheKey = "locations:all"
	exportCacheKey    = "export:csv"
	liveChannel       = "traffic:live"
)

// LiveEvent is published on the traffic:live channel after every
// committed ledger write and forwarded to websocket subscribers.
type LiveEvent struct {
	SessionID  int64 `json:"sessionid"`
	LocationID int64 `json:"locationid"`
	VType      int   `json:"type"`
	Occupancy  int   `json:"occupancy"`
	Mode       int   `json:"mode"`
	Time       int64 `json:"time"`
}

type locationsCache struct {
	Data []models.Location `json:"data"`
}

// ActionHandler dispatches the JSON command envelope POSTed to /action.
// Every command handler receives the session cookies and returns an
// ordered list of response items; failures become message items with the
// protocol's numeric codes, never transport errors.
type ActionHandler struct {
	auth    *services.AuthService
	ledger  *services.LedgerService
	reports *services.ReportService
	cache   *services.CacheService
}

func NewActionHandler(auth *services.AuthService, ledger *services.LedgerService, reports *services.ReportService, cache *services.CacheService) *ActionHandler {
	return &ActionHandler{auth: auth, ledger: ledger, reports: reports, cache: cache}
}

func (h *ActionHandler) Handle(c *gin.Context) {
	user, _ := c.Cookie(userCookie)
	magic, _ := c.Cookie(magicCookie)

	var content map[string]interface{}
	if err := c.ShouldBindJSON(&content); err != nil || content == nil {
		c.JSON(http.StatusOK, []interface{}{Message(902, "Internal Error: Command not found.")})
		return
	}
	command, ok := content["command"].(string)
	if !ok {
		c.JSON(http.StatusOK, []interface{}{Message(902, "Internal Error: Command not found.")})
		return
	}
	middleware.CountCommand(command)

	var items []interface{}
	switch command {
	case "login":
		var newUser, newMagic string
		newUser, newMagic, items = h.login(content)
		// A failed login clears the cookies; a successful one rotates them.
		setCookies(c, newUser, newMagic)
	case "logout":
		items = h.logout(user, magic)
	case "location":
		items = h.locations(c, user, magic)
	case "add":
		items = h.add(user, magic, content)
	case "undo":
		items = h.undo(user, magic, content)
	case "summary":
		items = h.summary(user, magic, content)
	default:
		items = []interface{}{Message(901, "Internal Error: Command not recognised.")}
	}

	c.JSON(http.StatusOK, items)
}

func (h *ActionHandler) login(content map[string]interface{}) (string, string, []interface{}) {
	username, uok := content["username"].(string)
	password, pok := content["password"].(string)
	if !uok || !pok {
		return "", "", []interface{}{Message(200, "Missing username or password field in request.")}
	}

	userID, magic, err := h.auth.Login(username, password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		return "", "", []interface{}{Message(103, "Invalid credentials. One or both of Username and Password are incorrect or empty.")}
	}
	if err != nil {
		return "", "", internalError(err)
	}
	return strconv.FormatInt(userID, 10), magic, []interface{}{Redirect("/index.html")}
}

func (h *ActionHandler) logout(user, magic string) []interface{} {
	if user == "" || magic == "" {
		return []interface{}{Message(110, "User is not logged in")}
	}
	h.auth.Logout(user, magic)
	return []interface{}{Redirect("/logout.html")}
}

func (h *ActionHandler) locations(c *gin.Context, user, magic string) []interface{} {
	sessionID := h.auth.Validate(user, magic)
	if sessionID == 0 {
		return []interface{}{Redirect("/login.html")}
	}

	var locations []models.Location
	var cached locationsCache
	if err := h.cache.Get(c.Request.Context(), locationsCacheKey, &cached); err == nil && cached.Data != nil {
		locations = cached.Data
	} else {
		var err error
		locations, err = h.reports.Locations()
		if err != nil {
			return internalError(err)
		}
		go h.cache.Set(context.Background(), locationsCacheKey, locationsCache{Data: locations}, 60*time.Second)
	}

	total, err := h.ledger.SessionTotal(sessionID)
	if err != nil {
		return internalError(err)
	}

	items := make([]interface{}, 0, len(locations)+1)
	for _, loc := range locations {
		items = append(items, LocationEntry(loc.LocationID, loc.Name))
	}
	return append(items, Total(total))
}

func (h *ActionHandler) add(user, magic string, content map[string]interface{}) []interface{} {
	sessionID := h.auth.Validate(user, magic)
	if sessionID == 0 {
		return []interface{}{Redirect("/login.html")}
	}

	location, present, ok := intField(content, "location")
	if !present {
		return []interface{}{Message(201, "Location field missing from request.")}
	}
	if !ok {
		return commandFailure(services.ErrInvalidLocation)
	}
	vtype, present, ok := intField(content, "type")
	if !present {
		return []interface{}{Message(202, "Type field missing from request.")}
	}
	if !ok {
		return commandFailure(services.ErrInvalidType)
	}
	occupancy, present, ok := intField(content, "occupancy")
	if !present {
		return []interface{}{Message(203, "Occupancy field missing from request.")}
	}
	if !ok {
		return commandFailure(services.ErrInvalidOccupancy)
	}

	result, err := h.ledger.Add(sessionID, location, int(vtype), int(occupancy))
	if err != nil {
		return errorItems(err)
	}

	middleware.ObservationRecorded()
	h.afterLedgerWrite(LiveEvent{
		SessionID: sessionID, LocationID: location,
		VType: int(vtype), Occupancy: int(occupancy), Mode: 1,
		Time: time.Now().Unix(),
	})
	return []interface{}{
		Message(0, "Vehicle added for "+result.LocationName),
		Total(result.Total),
	}
}

func (h *ActionHandler) undo(user, magic string, content map[string]interface{}) []interface{} {
	sessionID := h.auth.Validate(user, magic)
	if sessionID == 0 {
		return []interface{}{Redirect("/login.html")}
	}

	location, present, ok := intField(content, "location")
	if !present {
		return []interface{}{Message(204, "Location field missing from request.")}
	}
	if !ok {
		// An unparseable field cannot match any existing record.
		return commandFailure(services.ErrNoLocationMatch)
	}
	vtype, present, ok := intField(content, "type")
	if !present {
		return []interface{}{Message(205, "Type field missing from request.")}
	}
	if !ok {
		return commandFailure(services.ErrNoTypeMatch)
	}
	occupancy, present, ok := intField(content, "occupancy")
	if !present {
		return []interface{}{Message(206, "Occupancy field missing from request.")}
	}
	if !ok {
		return commandFailure(services.ErrNoOccupancyMatch)
	}

	result, err := h.ledger.Undo(sessionID, location, int(vtype), int(occupancy))
	if err != nil {
		return errorItems(err)
	}

	middleware.ObservationRetracted()
	h.afterLedgerWrite(LiveEvent{
		SessionID: sessionID, LocationID: location,
		VType: int(vtype), Occupancy: int(occupancy), Mode: -1,
		Time: time.Now().Unix(),
	})
	return []interface{}{
		Message(0, "Vehicle removed for "+result.LocationName),
		Total(result.Total),
	}
}

func (h *ActionHandler) summary(user, magic string, content map[string]interface{}) []interface{} {
	sessionID := h.auth.Validate(user, magic)
	if sessionID == 0 {
		return []interface{}{Redirect("/login.html")}
	}

	location, present, ok := intField(content, "location")
	if !present {
		return []interface{}{Message(201, "Location field missing from request.")}
	}
	if !ok {
		return commandFailure(services.ErrInvalidLocation)
	}

	name, counts, err := h.reports.Summary(sessionID, location)
	if err != nil {
		return errorItems(err)
	}

	items := make([]interface{}, 0, len(counts)+1)
	for i, count := range counts {
		items = append(items, VCount(i+1, count))
	}
	return append(items, Message(0, fmt.Sprintf("Summary compiled for %s.", name)))
}

// afterLedgerWrite invalidates the export cache and publishes the event
// for websocket subscribers. Best effort; the write is already durable.
func (h *ActionHandler) afterLedgerWrite(event LiveEvent) {
	go func() {
		ctx := context.Background()
		if err := h.cache.Delete(ctx, exportCacheKey); err != nil {
			log.Printf("export cache invalidation failed: %v", err)
		}
		if err := h.cache.Publish(ctx, liveChannel, event); err != nil {
			log.Printf("live event publish failed: %v", err)
		}
	}()
}

func setCookies(c *gin.Context, user, magic string) {
	c.SetCookie(userCookie, user, 0, "/", "", false, false)
	c.SetCookie(magicCookie, magic, 0, "/", "", false, false)
}

// intField pulls an integer out of the loosely typed command payload; the
// front end sends numbers for some fields and digit strings for others.
// Returns the value, whether the key was present, and whether it parsed.
func intField(content map[string]interface{}, key string) (int64, bool, bool) {
	raw, present := content[key]
	if !present {
		return 0, false, false
	}
	switch v := raw.(type) {
	case float64:
		return int64(v), true, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, true, false
		}
		return n, true, true
	default:
		return 0, true, false
	}
}

// errorItems converts a service failure into response items: protocol
// codes pass through, anything else is reported as an internal error.
func errorItems(err error) []interface{} {
	var cmdErr *services.CommandError
	if errors.As(err, &cmdErr) {
		return commandFailure(cmdErr)
	}
	return internalError(err)
}

func commandFailure(err *services.CommandError) []interface{} {
	return []interface{}{Message(err.Code, err.Text)}
}

func internalError(err error) []interface{} {
	log.Printf("internal error: %v", err)
	return []interface{}{Message(903, "Internal Error: Storage failure.")}
}
