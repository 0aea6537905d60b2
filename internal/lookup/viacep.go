// Пакет lookup резолвит бразильский почтовый индекс (CEP) через публичный API ViaCEP.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	defaultBaseURL = "https://viacep.com.br"
	defaultTimeout = 5 * time.Second
)

// ViaCEPClient — HTTP-клиент сервиса адресов ViaCEP.
type ViaCEPClient struct {
	baseURL string
	client  *http.Client
	logger  *log.Entry
}

// ViaCEPOption настраивает клиента.
type ViaCEPOption func(*ViaCEPClient)

// WithBaseURL задаёт адрес сервиса (используется в тестах с httptest).
func WithBaseURL(baseURL string) ViaCEPOption {
	return func(c *ViaCEPClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient задаёт кастомный http.Client.
func WithHTTPClient(client *http.Client) ViaCEPOption {
	return func(c *ViaCEPClient) {
		c.client = client
	}
}

// NewViaCEPClient создаёт клиента с таймаутом по умолчанию.
func NewViaCEPClient(options ...ViaCEPOption) *ViaCEPClient {
	c := &ViaCEPClient{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  log.WithField("component", "viacep-client"),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// viaCEPResponse — формат ответа ViaCEP; поле erro приходит только для неизвестных индексов.
type viaCEPResponse struct {
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       bool   `json:"erro"`
}

// Lookup резолвит восьмизначный CEP в адресные поля.
// Неизвестный индекс и транспортный сбой различаются: первый возвращает
// ErrCEPNotFound, второй ErrCEPLookupUnavailable.
func (c *ViaCEPClient) Lookup(ctx context.Context, cep string) (domain.LookupResult, error) {
	digits := domain.Digits(cep)
	if len(digits) != 8 {
		return domain.LookupResult{}, domain.ErrCEPNotFound
	}

	url := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.LookupResult{}, fmt.Errorf("build viacep request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("cep", digits).Warn("viacep request failed")
		return domain.LookupResult{}, domain.ErrCEPLookupUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(log.Fields{
			"cep":    digits,
			"status": resp.StatusCode,
		}).Warn("viacep returned unexpected status")
		return domain.LookupResult{}, domain.ErrCEPLookupUnavailable
	}

	var payload viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.LookupResult{}, domain.ErrCEPLookupUnavailable
	}
	if payload.Erro {
		return domain.LookupResult{}, domain.ErrCEPNotFound
	}

	return domain.LookupResult{
		Street:       payload.Logradouro,
		Neighborhood: payload.Bairro,
		City:         payload.Localidade,
		State:        payload.UF,
	}, nil
}

var _ domain.AddressLookup = (*ViaCEPClient)(nil)
