package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"story-workers/internal/common/errors"
	"story-workers/internal/common/logger"
)

// commands are sent outside the job context, which may already be spent
const sendTimeout = 10 * time.Second

// SendContext bounds a single command sent back to the broker.
func SendContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), sendTimeout)
}

// CompleteJob completes job with output encoded as process variables.
func CompleteJob(client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) {
	ctx, cancel := SendContext()
	defer cancel()

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		log.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	log.Info("job completed", map[string]interface{}{"jobKey": job.GetKey()})
}

// DecodeVariables unmarshals the job variables into v.
func DecodeVariables(job entities.Job, v interface{}) error {
	if err := json.Unmarshal([]byte(job.GetVariables()), v); err != nil {
		return errors.NewInputValidationFailedError(fmt.Sprintf("parse job variables: %v", err))
	}
	return nil
}

// VariablesMap returns the job variables as a map, reporting decode
// failures as validation errors.
func VariablesMap(job entities.Job) (map[string]interface{}, error) {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputValidationFailedError(fmt.Sprintf("parse job variables: %v", err))
	}
	return vars, nil
}
