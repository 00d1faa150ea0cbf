package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"docgate/internal/receipt"
)

type ReceiptHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestReceiptHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReceiptHandlerSuite))
}

func (s *ReceiptHandlerSuite) SetupTest() {
	svc, err := receipt.NewService(receipt.NewInMemoryStore(),
		receipt.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *ReceiptHandlerSuite) do(method, path string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *ReceiptHandlerSuite) issue(docID, facts string) receiptResponse {
	rec := s.do(http.MethodPost, "/ingest/receipts",
		fmt.Sprintf(`{"doc_id":%q,"facts":%s}`, docID, facts))
	s.Require().Equal(http.StatusCreated, rec.Code)

	var resp receiptResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *ReceiptHandlerSuite) TestIssueReceipt() {
	resp := s.issue("D1", `[{"key":"diagnosis","value":"J45.901"},{"key":"confirmed","value":true}]`)

	s.Equal("D1", resp.DocID)
	s.NotEmpty(resp.ReceiptID)
	s.Len(resp.SHA256Hash, 64)
	s.JSONEq(`{"confirmed":true,"diagnosis":"J45.901"}`, string(resp.CanonicalJSON))
	s.False(resp.CreatedAt.IsZero())
}

func (s *ReceiptHandlerSuite) TestIssueIsOrderIndependent() {
	a := s.issue("D1", `[{"key":"b","value":1},{"key":"a","value":2}]`)
	b := s.issue("D2", `[{"key":"a","value":2},{"key":"b","value":1}]`)
	s.Equal(a.SHA256Hash, b.SHA256Hash)
}

func (s *ReceiptHandlerSuite) TestIssueRejectsDuplicateKeys() {
	rec := s.do(http.MethodPost, "/ingest/receipts",
		`{"doc_id":"D1","facts":[{"key":"a","value":1},{"key":"a","value":2}]}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"bad_request"}`, rec.Body.String())
}

func (s *ReceiptHandlerSuite) TestIssueRejectsMissingDocID() {
	rec := s.do(http.MethodPost, "/ingest/receipts", `{"facts":[]}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ReceiptHandlerSuite) TestIssueRejectsMalformedBody() {
	rec := s.do(http.MethodPost, "/ingest/receipts", `{"doc_id":`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ReceiptHandlerSuite) TestGetByID() {
	issued := s.issue("D1", `[{"key":"a","value":1}]`)

	rec := s.do(http.MethodGet, "/receipts/"+issued.ReceiptID, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp receiptResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(issued.ReceiptID, resp.ReceiptID)
	s.Equal(issued.SHA256Hash, resp.SHA256Hash)
}

func (s *ReceiptHandlerSuite) TestGetUnknownReceipt() {
	rec := s.do(http.MethodGet, "/receipts/ffffffff-ffff-ffff-ffff-ffffffffffff", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.JSONEq(`{"error":"not_found"}`, rec.Body.String())
}

func (s *ReceiptHandlerSuite) TestLatestReturnsMostRecent() {
	s.issue("D1", `[{"key":"a","value":1}]`)
	second := s.issue("D1", `[{"key":"a","value":2}]`)

	rec := s.do(http.MethodGet, "/documents/D1/receipt", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp receiptResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(second.ReceiptID, resp.ReceiptID)
}

func (s *ReceiptHandlerSuite) TestLatestForUnknownDocument() {
	rec := s.do(http.MethodGet, "/documents/missing/receipt", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ReceiptHandlerSuite) TestListReturnsAllReceiptsInOrder() {
	first := s.issue("D1", `[{"key":"a","value":1}]`)
	second := s.issue("D1", `[{"key":"a","value":2}]`)

	rec := s.do(http.MethodGet, "/documents/D1/receipts", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp []receiptResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp, 2)
	s.Equal(first.ReceiptID, resp[0].ReceiptID)
	s.Equal(second.ReceiptID, resp[1].ReceiptID)
}

func (s *ReceiptHandlerSuite) TestListForUnknownDocumentIsEmpty() {
	rec := s.do(http.MethodGet, "/documents/missing/receipts", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`[]`, rec.Body.String())
}
