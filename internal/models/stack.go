package models

// StackTimeLayout is the fixed format of stack timestamps in snapshots
const StackTimeLayout = "Mon, 02 Jan 2006 15:04:05 +0000"

// StackDescription is the full description of the stack owning the instance
type StackDescription struct {
	StackName         string            `json:"StackName"`
	StackID           string            `json:"StackId,omitempty"`
	StackStatus       string            `json:"StackStatus,omitempty"`
	StackStatusReason string            `json:"StackStatusReason,omitempty"`
	Description       string            `json:"Description,omitempty"`
	CreationTime      string            `json:"CreationTime,omitempty"`
	LastUpdatedTime   string            `json:"LastUpdatedTime,omitempty"`
	Parameters        map[string]string `json:"Parameters,omitempty"`
	Outputs           map[string]string `json:"Outputs,omitempty"`
	Tags              map[string]string `json:"Tags,omitempty"`
	Resources         []StackResource   `json:"Resources,omitempty"`
}

// StackResource maps a template logical id to the provider resource
type StackResource struct {
	LogicalID  string `json:"LogicalResourceId"`
	PhysicalID string `json:"PhysicalResourceId,omitempty"`
	Type       string `json:"ResourceType,omitempty"`
	Status     string `json:"ResourceStatus,omitempty"`
}

// FlattenStackData merges resource physical ids, parameters and outputs
// into one name to value map. Later sources win on name clashes.
func FlattenStackData(stack *StackDescription) map[string]string {
	data := make(map[string]string)
	if stack == nil {
		return data
	}
	for _, r := range stack.Resources {
		data[r.LogicalID] = r.PhysicalID
	}
	for k, v := range stack.Parameters {
		data[k] = v
	}
	for k, v := range stack.Outputs {
		data[k] = v
	}
	return data
}
