package dto

import "mathmotion.app/studio/internal/job"

type CreateVideoRequest struct {
	Question string `json:"question" binding:"required,min=3"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type CreateVideoResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type VideoStatusResponse struct {
	JobID     string   `json:"job_id"`
	Question  string   `json:"question"`
	Status    string   `json:"status"`
	Stage     string   `json:"stage,omitempty"`
	Logs      []string `json:"logs"`
	ResultURL string   `json:"result_url,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func ToVideoStatusResponse(j job.Job) VideoStatusResponse {
	return VideoStatusResponse{
		JobID:     j.ID,
		Question:  j.Question,
		Status:    string(j.Status),
		Stage:     j.Stage,
		Logs:      j.Logs,
		ResultURL: j.ResultURL,
		Error:     j.Error,
	}
}
