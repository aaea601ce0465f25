package dto

import acqdomain "cfdivault-backend/internal/acquisition/domain"

type RegisterTaxpayerRequest struct {
	RFC  string `json:"rfc" binding:"required"`
	Name string `json:"name"`
}

type TaxpayersResponse struct {
	Taxpayers []*acqdomain.Taxpayer `json:"taxpayers"`
}

type RequestsResponse struct {
	Requests []*acqdomain.AcquisitionRequest `json:"requests"`
}
