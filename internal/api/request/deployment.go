package request

import "github.com/kubidu/kubidu/internal/model"

// Rollback is the body of POST /services/{id}/rollback.
type Rollback struct {
	DeploymentID string `json:"deployment_id" validate:"required"`
}

// DeploymentStatus is reported by the build executor.
type DeploymentStatus struct {
	Status   string  `json:"status" validate:"required,oneof=PENDING BUILDING DEPLOYING RUNNING FAILED CRASHED STOPPED"`
	Message  *string `json:"message" validate:"omitempty,max=4096"`
	ImageURL *string `json:"image_url" validate:"omitempty,max=512"`
	ImageTag *string `json:"image_tag" validate:"omitempty,max=128"`
}

func (d DeploymentStatus) ToUpdate(deploymentID string) model.DeploymentStatusUpdate {
	return model.DeploymentStatusUpdate{
		DeploymentID: deploymentID,
		Status:       model.DeploymentStatus(d.Status),
		Message:      d.Message,
		ImageURL:     d.ImageURL,
		ImageTag:     d.ImageTag,
	}
}

// BuildStatus is reported by the build executor for a build queue entry.
type BuildStatus struct {
	Status string  `json:"status" validate:"required,oneof=QUEUED RUNNING SUCCEEDED FAILED"`
	Error  *string `json:"error" validate:"omitempty,max=4096"`
}
