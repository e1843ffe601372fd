package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/linesmerrill/forensic-case-api/api"
	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/databases"
	"github.com/linesmerrill/forensic-case-api/models"
)

// Publisher receives change events for the live feed
type Publisher interface {
	Publish(event models.LiveEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(models.LiveEvent) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// pathID parses the hex object id in the route variable name. It writes the
// 400 answer itself and reports false on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		config.ErrorStatus("Identificador inválido.", http.StatusBadRequest, w, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func paging(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return databases.NormalizePaging(page, limit)
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

func caller(r *http.Request) api.UserInfo {
	u, _ := api.UserFromContext(r.Context())
	return u
}

// lookupError answers 404 for missing documents and 500 for anything else
func lookupError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus(notFound, http.StatusNotFound, w, err)
		return
	}
	zap.S().Errorw("database lookup failed", "error", err)
	config.ErrorStatus("Erro interno do servidor.", http.StatusInternalServerError, w, err)
}

func internalError(w http.ResponseWriter, err error) {
	config.ErrorStatus("Erro interno do servidor.", http.StatusInternalServerError, w, err)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// present lists the top-level keys of a JSON object body
func present(body []byte) (map[string]json.RawMessage, error) {
	keys := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}
