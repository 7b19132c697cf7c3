// internal/api/tenantpage/handlers.go
package tenantpage

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rmarchetti/turnera/internal/api/apiutil"
	"github.com/rmarchetti/turnera/internal/booking"
	"github.com/rmarchetti/turnera/internal/store"
)

const (
	pageQueryTimeout = 5 * time.Second

	// Markers replaced in the shared booking form before serving.
	styleMarker = "<!-- TENANT_STYLE -->"
	logoMarker  = "<!-- TENANT_LOGO -->"
	nameMarker  = "<!-- TENANT_NAME -->"
)

var (
	tenants   *store.Tenants
	bookings  *store.Bookings
	staticDir string
	initOnce  sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(t *store.Tenants, b *store.Bookings, dir string) {
	if t == nil {
		return
	}
	initOnce.Do(func() {
		tenants = t
		bookings = b
		staticDir = dir
	})
}

type dayHoursResponse struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type tenantConfigResponse struct {
	ID                     string                      `json:"id"`
	Name                   string                      `json:"name"`
	Days                   []int                       `json:"days"`
	Hours                  map[string]dayHoursResponse `json:"hours"`
	Services               map[string]int              `json:"services"`
	SlotGranularityMinutes int                         `json:"slotGranularityMinutes"`
}

// GET /api/config/{tenant}
func HandleTenantConfig(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if tenants == nil {
		logger.Error().Msg("Tenant store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pageQueryTimeout)
	defer cancel()

	cfg, err := tenants.Get(ctx, r.PathValue("tenant"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load tenant config")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		_ = apiutil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"reason": string(booking.ReasonTenantUnknown),
		})
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, configResponse(cfg))
}

func configResponse(cfg *booking.TenantConfig) tenantConfigResponse {
	resp := tenantConfigResponse{
		ID:                     cfg.ID,
		Name:                   cfg.Name,
		Days:                   []int{},
		Hours:                  map[string]dayHoursResponse{},
		Services:               cfg.Services,
		SlotGranularityMinutes: cfg.SlotGranularityMinutes,
	}
	if resp.Services == nil {
		resp.Services = map[string]int{}
	}
	for wd, enabled := range cfg.OperatingDays {
		if !enabled {
			continue
		}
		resp.Days = append(resp.Days, int(wd))
		if window, ok := cfg.HoursByDay[wd]; ok {
			resp.Hours[fmt.Sprintf("%d", int(wd))] = dayHoursResponse{
				Open:  minutesToClock(window.Open),
				Close: minutesToClock(window.Close),
			}
		}
	}
	sort.Ints(resp.Days)
	return resp
}

func minutesToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// GET /{tenant}
//
// Serves the shared booking form with the tenant's name, stylesheet,
// and logo spliced in.
func HandleTenantPage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if tenants == nil {
		logger.Error().Msg("Tenant store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pageQueryTimeout)
	defer cancel()

	tenantID := r.PathValue("tenant")
	cfg, err := tenants.Get(ctx, tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load tenant config")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		http.NotFound(w, r)
		return
	}

	page, err := os.ReadFile(filepath.Join(staticDir, "form.html"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read booking form")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	html := string(page)
	html = strings.Replace(html, styleMarker, styleTag(tenantID), 1)
	html = strings.Replace(html, logoMarker, logoTag(tenantID, cfg.Name), 1)
	html = strings.ReplaceAll(html, nameMarker, template.HTMLEscapeString(cfg.Name))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// styleTag prefers a per-tenant stylesheet when one is deployed under
// static/tenants/{id}/.
func styleTag(tenantID string) string {
	href := "/static/default.css"
	if _, err := os.Stat(filepath.Join(staticDir, "tenants", tenantID, "style.css")); err == nil {
		href = fmt.Sprintf("/static/tenants/%s/style.css", tenantID)
	}
	return fmt.Sprintf(`<link rel="stylesheet" href="%s">`, href)
}

func logoTag(tenantID, name string) string {
	if _, err := os.Stat(filepath.Join(staticDir, "tenants", tenantID, "logo.png")); err != nil {
		return ""
	}
	return fmt.Sprintf(`<img class="logo" src="/static/tenants/%s/logo.png" alt="%s">`,
		tenantID, template.HTMLEscapeString(name))
}

var panelTemplate = template.Must(template.New("panel").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Panel - {{.TenantName}}</title>
<link rel="stylesheet" href="/static/default.css">
</head>
<body class="panel">
<h1>{{.TenantName}} - Turnos</h1>
<input id="filter-date" type="date" placeholder="Fecha">
<input id="filter-text" type="text" placeholder="Buscar nombre o email">
<table id="bookings">
<thead>
<tr><th>Fecha</th><th>Hora</th><th>Nombre</th><th>Email</th><th>Teléfono</th><th>Servicio</th></tr>
</thead>
<tbody>
{{range .Bookings}}<tr data-date="{{.Date}}">
<td>{{.Date}}</td><td>{{.Time}}</td><td>{{.CustomerName}}</td><td>{{.CustomerEmail}}</td><td>{{.CustomerPhone}}</td><td>{{.Service}}</td>
</tr>
{{end}}</tbody>
</table>
<script>
(function () {
  const dateInput = document.getElementById("filter-date");
  const textInput = document.getElementById("filter-text");
  const rows = Array.from(document.querySelectorAll("#bookings tbody tr"));
  function apply() {
    const date = dateInput.value;
    const text = textInput.value.trim().toLowerCase();
    rows.forEach(function (row) {
      const matchesDate = !date || row.dataset.date === date;
      const matchesText = !text || row.textContent.toLowerCase().includes(text);
      row.style.display = matchesDate && matchesText ? "" : "none";
    });
  }
  dateInput.addEventListener("input", apply);
  textInput.addEventListener("input", apply);
})();
</script>
</body>
</html>
`))

type panelData struct {
	TenantName string
	Bookings   []booking.Booking
}

// GET /{tenant}/panel
//
// Lists every booking for the tenant behind the admin key.
func HandleTenantPanel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if tenants == nil || bookings == nil {
		logger.Error().Msg("Tenant store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pageQueryTimeout)
	defer cancel()

	tenantID := r.PathValue("tenant")
	cfg, err := tenants.Get(ctx, tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load tenant config")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		http.NotFound(w, r)
		return
	}

	hash, _, err := tenants.AdminKeyHash(ctx, tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load admin key")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if hash == "" {
		http.Error(w, "Admin access not configured", http.StatusForbidden)
		return
	}
	if !apiutil.VerifyAdminKey(hash, apiutil.AdminKeyFromRequest(r)) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rows, err := bookings.ListByTenant(ctx, tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list bookings")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := panelTemplate.Execute(w, panelData{TenantName: cfg.Name, Bookings: rows}); err != nil {
		logger.Error().Err(err).Msg("Failed to render panel")
	}
}
