package models

// BaseResponse represents the base API response structure
type BaseResponse struct {
	Success   bool        `json:"success" example:"true"`
	Message   string      `json:"message,omitempty" example:"Operation completed successfully"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp" example:"1640995200"`
	RequestID string      `json:"request_id,omitempty" example:"7d9f4c1e-3a52-4b8e-9f0d-2b6c8e1a4f37"`
}

// ErrorInfo represents error information
type ErrorInfo struct {
	Code    string            `json:"code" example:"INVALID_REQUEST"`
	Message string            `json:"message" example:"Invalid request parameters"`
	Details string            `json:"details,omitempty" example:"Field 'name' is required"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// PaginatedResponse represents paginated response
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
}

// PaginationInfo represents pagination information
type PaginationInfo struct {
	Limit        int  `json:"limit" example:"20"`
	Offset       int  `json:"offset" example:"0"`
	TotalRecords int  `json:"total_records" example:"100"`
	HasNext      bool `json:"has_next" example:"true"`
}

// HealthCheckResponse represents health check response
type HealthCheckResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp int64                  `json:"timestamp" example:"1640995200"`
	Version   string                 `json:"version" example:"1.0.0"`
	Uptime    int64                  `json:"uptime" example:"86400"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents individual health check
type HealthCheck struct {
	Status  string `json:"status" example:"healthy"`
	Message string `json:"message,omitempty" example:"Service is running normally"`
	Latency string `json:"latency,omitempty" example:"5ms"`
}
