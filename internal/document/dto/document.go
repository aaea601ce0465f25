package dto

import docdomain "cfdivault-backend/internal/document/domain"

type DocumentsResponse struct {
	Documents []*docdomain.Document `json:"documents"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	Total     int64                 `json:"total"`
}

type SweepRequest struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Direction string `json:"direction"`
}
