package tours

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Tosino95/natours/internal/apperror"
	"github.com/Tosino95/natours/internal/storage"
	"github.com/Tosino95/natours/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Handler holds the tour operations that fall outside the generic factory:
// aggregations, geo queries and image uploads.
type Handler struct {
	DB     *gorm.DB
	Photos *storage.PhotoStore
}

// visible scopes a query to non-secret tours, same filter the query schema
// composes into list reads.
func (h *Handler) visible() *gorm.DB {
	return h.DB.Model(&Tour{}).Where("secret_tour = ?", false)
}

// AliasTopTours rewrites the query so the generic list handler returns the
// five best cheap tours.
func AliasTopTours(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		q.Set("limit", "5")
		q.Set("sort", "-ratingsAverage,price")
		q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
		r.URL.RawQuery = q.Encode()
		next(w, r)
	}
}

type tourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// GetTourStats groups well-rated tours by difficulty with price and rating
// aggregates.
func (h *Handler) GetTourStats(w http.ResponseWriter, r *http.Request) {
	var stats []tourStats
	err := h.DB.Raw(`
		SELECT
			UPPER(difficulty)      AS difficulty,
			COUNT(*)               AS num_tours,
			SUM(ratings_quantity)  AS num_ratings,
			AVG(ratings_average)   AS avg_rating,
			AVG(price)             AS avg_price,
			MIN(price)             AS min_price,
			MAX(price)             AS max_price
		FROM natours.tours
		WHERE ratings_average >= 4.5 AND secret_tour = false
		GROUP BY UPPER(difficulty)
		ORDER BY avg_price`).Scan(&stats).Error
	if err != nil {
		apperror.Respond(w, apperror.FromDB(err, "tour"))
		return
	}
	utils.Success(w, http.StatusOK, map[string]any{"stats": stats})
}

type monthlyPlanRow struct {
	Month         int            `json:"month"`
	NumTourStarts int            `json:"numTourStarts"`
	Tours         pq.StringArray `gorm:"type:text[]" json:"tours"`
}

// GetMonthlyPlan unwinds start dates into a per-month tour count for one
// year, busiest month first.
func (h *Handler) GetMonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		apperror.Respond(w, apperror.Validation("year must be a number"))
		return
	}

	var plan []monthlyPlanRow
	err = h.DB.Raw(`
		SELECT
			EXTRACT(MONTH FROM sd.start)::int AS month,
			COUNT(*)                          AS num_tour_starts,
			ARRAY_AGG(t.name)                 AS tours
		FROM natours.tours t
		CROSS JOIN LATERAL (
			SELECT (value #>> '{}')::timestamptz AS start
			FROM jsonb_array_elements(t.start_dates)
		) sd
		WHERE sd.start >= ? AND sd.start < ?
		GROUP BY EXTRACT(MONTH FROM sd.start)
		ORDER BY num_tour_starts DESC
		LIMIT 12`,
		strconv.Itoa(year)+"-01-01", strconv.Itoa(year+1)+"-01-01").Scan(&plan).Error
	if err != nil {
		apperror.Respond(w, apperror.FromDB(err, "tour"))
		return
	}
	utils.Success(w, http.StatusOK, map[string]any{"plan": plan})
}

const (
	earthRadiusMi = 3963.2
	earthRadiusKm = 6378.1
)

func parseLatLng(raw string) (lat, lng float64, err *apperror.Error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, apperror.Validation("Please provide latitude and longitude in the format lat,lng.")
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, apperror.Validation("Please provide latitude and longitude in the format lat,lng.")
	}
	return lat, lng, nil
}

func earthRadius(unit string) float64 {
	if unit == "mi" {
		return earthRadiusMi
	}
	return earthRadiusKm
}

// haversineSQL computes great-circle distance from the start location's
// GeoJSON coordinates ([lng, lat]).
const haversineSQL = `(? * acos(least(1.0,
	cos(radians(?)) * cos(radians((start_location->'coordinates'->>1)::float8)) *
	cos(radians((start_location->'coordinates'->>0)::float8) - radians(?)) +
	sin(radians(?)) * sin(radians((start_location->'coordinates'->>1)::float8)))))`

// GetToursWithin lists tours whose start location lies within the given
// radius of a center point.
func (h *Handler) GetToursWithin(w http.ResponseWriter, r *http.Request) {
	distance, err := strconv.ParseFloat(chi.URLParam(r, "distance"), 64)
	if err != nil {
		apperror.Respond(w, apperror.Validation("distance must be a number"))
		return
	}
	lat, lng, appErr := parseLatLng(chi.URLParam(r, "latlng"))
	if appErr != nil {
		apperror.Respond(w, appErr)
		return
	}
	radius := earthRadius(chi.URLParam(r, "unit"))

	var matched []Tour
	err = h.visible().
		Where(haversineSQL+" <= ?", radius, lat, lng, lat, distance).
		Find(&matched).Error
	if err != nil {
		apperror.Respond(w, apperror.FromDB(err, "tour"))
		return
	}
	for i := range matched {
		matched[i].Derive()
	}
	utils.SuccessList(w, len(matched), map[string]any{"tours": matched})
}

type tourDistance struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// GetDistances returns every tour's distance from a point, nearest first.
func (h *Handler) GetDistances(w http.ResponseWriter, r *http.Request) {
	lat, lng, appErr := parseLatLng(chi.URLParam(r, "latlng"))
	if appErr != nil {
		apperror.Respond(w, appErr)
		return
	}
	radius := earthRadius(chi.URLParam(r, "unit"))

	var distances []tourDistance
	err := h.visible().
		Select("id, name, "+haversineSQL+" AS distance", radius, lat, lng, lat).
		Order("distance").
		Scan(&distances).Error
	if err != nil {
		apperror.Respond(w, apperror.FromDB(err, "tour"))
		return
	}
	utils.Success(w, http.StatusOK, map[string]any{"distances": distances})
}

// UploadImages replaces a tour's cover image and gallery from a multipart
// form (fields imageCover and images, up to three gallery shots).
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var tour Tour
	if err := h.visible().First(&tour, "id = ?", id).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "tour"))
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		apperror.Respond(w, apperror.Wrap(apperror.KindValidation, "invalid multipart form", err))
		return
	}

	updates := map[string]any{}

	if data, err := h.readImage(r, "imageCover"); err != nil {
		apperror.Respond(w, err)
		return
	} else if data != nil {
		name, saveErr := h.Photos.Save("tours", "tour-"+id, "cover", data)
		if saveErr != nil {
			apperror.Respond(w, apperror.Internal("storing cover image", saveErr))
			return
		}
		updates["image_cover"] = name
	}

	if r.MultipartForm != nil && len(r.MultipartForm.File["images"]) > 0 {
		files := r.MultipartForm.File["images"]
		if len(files) > 3 {
			files = files[:3]
		}
		names := make(pq.StringArray, 0, len(files))
		for i, fh := range files {
			f, err := fh.Open()
			if err != nil {
				apperror.Respond(w, apperror.Internal("reading upload", err))
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				apperror.Respond(w, apperror.Internal("reading upload", err))
				return
			}
			if !strings.HasPrefix(http.DetectContentType(data), "image/") {
				apperror.Respond(w, apperror.Validation("Not an image! Please upload only images."))
				return
			}
			name, saveErr := h.Photos.Save("tours", "tour-"+id, strconv.Itoa(i+1), data)
			if saveErr != nil {
				apperror.Respond(w, apperror.Internal("storing image", saveErr))
				return
			}
			names = append(names, name)
		}
		updates["images"] = names
	}

	if len(updates) == 0 {
		apperror.Respond(w, apperror.Validation("no images in request"))
		return
	}
	if err := h.DB.Model(&tour).Updates(updates).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "tour"))
		return
	}
	utils.Success(w, http.StatusOK, map[string]any{"tour": tour})
}

// readImage pulls one optional image field out of the multipart form.
func (h *Handler) readImage(r *http.Request, field string) ([]byte, *apperror.Error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, nil // field absent
	}
	defer file.Close()
	data, readErr := io.ReadAll(file)
	if readErr != nil {
		return nil, apperror.Internal("reading upload", readErr)
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, apperror.Validation("Not an image! Please upload only images.")
	}
	return data, nil
}
