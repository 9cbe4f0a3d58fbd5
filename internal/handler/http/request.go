package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// maxBodyBytes bounds request bodies; product bodies carry inline images.
const maxBodyBytes = 50 << 20

// ImageList decodes either a single string or an array of strings.
type ImageList []string

func (l *ImageList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = nil
		} else {
			*l = ImageList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return apperrors.InvalidInput("images must be a string or an array of strings")
	}
	*l = many
	return nil
}

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name        string       `json:"name" validate:"required,max=500"`
	Description string       `json:"description" validate:"required"`
	Info        string       `json:"info" validate:"required"`
	Category    string       `json:"category" validate:"required"`
	Price       *float64     `json:"price" validate:"required,gte=0,lte=99999999"`
	Images      ImageList    `json:"images" validate:"dive,required"`
	Stock       domain.Stock `json:"Stock" validate:"required"`
}

// UpdateProductRequest is the JSON request body for updating a product.
type UpdateProductRequest struct {
	Name        *string      `json:"name" validate:"omitempty,min=1,max=500"`
	Description *string      `json:"description" validate:"omitempty,min=1"`
	Info        *string      `json:"info" validate:"omitempty,min=1"`
	Category    *string      `json:"category" validate:"omitempty,min=1"`
	Price       *float64     `json:"price" validate:"omitempty,gte=0,lte=99999999"`
	Images      ImageList    `json:"images" validate:"dive,required"`
	Stock       domain.Stock `json:"Stock"`
}

// UpdateStockRequest is the JSON request body for replacing a product's stock.
// ID is only read on the route without an id path parameter.
type UpdateStockRequest struct {
	ID    string       `json:"_id"`
	Stock domain.Stock `json:"Stock" validate:"required"`
}

// UpsertReviewRequest is the JSON request body for creating or updating a review.
type UpsertReviewRequest struct {
	ProductID string         `json:"productId" validate:"required"`
	Ratings   *domain.Rating `json:"ratings" validate:"required"`
	Title     string         `json:"title" validate:"max=200"`
	Comment   string         `json:"comment" validate:"max=5000"`
	Recommend *bool          `json:"recommend"`
}

// PasswordResetEmailRequest is the JSON request body for a password reset email.
type PasswordResetEmailRequest struct {
	Email    string `json:"email" validate:"required,email"`
	ResetURL string `json:"reset_url" validate:"required,url"`
}

// OrderStatusEmailRequest is the JSON request body for an order status email.
type OrderStatusEmailRequest struct {
	Email string       `json:"email" validate:"required,email"`
	Order domain.Order `json:"order"`
}

// decodeAndValidate reads a JSON body into dst and validates it. On failure it
// writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, http.MaxBytesReader(w, r.Body, maxBodyBytes), dst)
}

// decodeProductRequest accepts either JSON or a multipart form. Form fields are
// mapped onto the JSON field names so both shapes share one validation path.
func decodeProductRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return decodeAndValidate(w, r, dst)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writePayloadTooLarge(w, maxErr)
			return false
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_FORM", Message: "invalid multipart form body"},
		})
		return false
	}
	defer r.MultipartForm.RemoveAll()

	fields, err := formFields(r.MultipartForm)
	if err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	body, _ := json.Marshal(fields)
	return decodeBody(w, bytes.NewReader(body), dst)
}

// formFields converts product form values to their JSON shapes. Only fields
// present in the form are returned, so partial updates stay partial.
func formFields(form *multipart.Form) (map[string]any, error) {
	out := make(map[string]any)
	for _, key := range []string{"name", "description", "info", "category"} {
		if v, ok := form.Value[key]; ok && len(v) > 0 {
			out[key] = v[0]
		}
	}

	if v, ok := form.Value["price"]; ok && len(v) > 0 {
		price, err := strconv.ParseFloat(strings.TrimSpace(v[0]), 64)
		if err != nil {
			return nil, errors.New("price must be a number")
		}
		out["price"] = price
	}

	// Stock arrives as an encoded object; domain.Stock decodes the string form.
	if v, ok := form.Value["Stock"]; ok && len(v) > 0 {
		out["Stock"] = v[0]
	}

	var images []string
	for _, key := range []string{"images", "images[]"} {
		images = append(images, form.Value[key]...)
	}
	if len(images) > 0 {
		out["images"] = images
	}
	return out, nil
}

func decodeBody(w http.ResponseWriter, body io.Reader, dst any) bool {
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var appErr *apperrors.AppError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &appErr):
			httputil.WriteValidationError(w, errors.New(appErr.Message))
		case errors.As(err, &maxErr):
			writePayloadTooLarge(w, maxErr)
		case errors.Is(err, io.EOF):
			httputil.WriteValidationError(w, errors.New("request body is required"))
		default:
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_JSON", Message: "invalid JSON request body"},
			})
		}
		return false
	}

	if err := validator.Validate(dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}

func writePayloadTooLarge(w http.ResponseWriter, err *http.MaxBytesError) {
	httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "PAYLOAD_TOO_LARGE", Message: fmt.Sprintf("request body exceeds %d bytes", err.Limit)},
	})
}
