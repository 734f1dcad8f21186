package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/younsl/ec2utils/internal/models"
	"github.com/younsl/ec2utils/pkg/utils"
)

// PrintInstanceJSON prints the snapshot as indented JSON
func PrintInstanceJSON(w io.Writer, s *models.InstanceSnapshot) error {
	out, err := utils.FormatJSON(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// PrintInstanceTable prints the snapshot as a set of tables: instance
// fields, network interfaces, tags and stack data
func PrintInstanceTable(w io.Writer, s *models.InstanceSnapshot) {
	if s.IsEmpty() {
		fmt.Fprintln(w, "No instance data available.")
		return
	}

	region := s.Region
	if name := utils.GetRegionDescriptiveName(region); name != "" {
		region = fmt.Sprintf("%s (%s)", region, name)
	}
	launched := "<none>"
	if s.PendingTime != nil {
		launched = formatWhen(*s.PendingTime)
	}
	stackCreated := "<none>"
	if s.FullStackData != nil {
		if created, err := utils.ParseStackTime(s.FullStackData.CreationTime); err == nil {
			stackCreated = formatWhen(created)
		}
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Instance ID", s.InstanceID},
		{"Name", orNone(utils.GetName(s.Tags))},
		{"Instance Type", orNone(s.InstanceType)},
		{"Image ID", orNone(s.ImageID)},
		{"Architecture", orNone(s.Architecture)},
		{"Launched", launched},
		{"Account", orNone(s.AccountID)},
		{"Region", region},
		{"Availability Zone", s.AvailabilityZone},
		{"Private IP", s.PrivateIP},
		{"VPC", orNone(s.VpcID)},
		{"Subnet", orNone(s.SubnetID)},
		{"Stack Name", orNone(s.StackName)},
		{"Stack ID", orNone(s.StackID)},
		{"Logical ID", orNone(s.LogicalID)},
		{"Stack Created", stackCreated},
		{"Initial Status", orNone(s.InitialStatus)},
	})
	t.Render()

	if len(s.NetworkInterfaces) > 0 {
		fmt.Fprintln(w)
		t := newTable(w)
		t.AppendHeader(table.Row{"Device", "Interface ID", "Private IP", "Subnet", "MAC"})
		for _, iface := range s.NetworkInterfaces {
			t.AppendRow(table.Row{iface.DeviceIndex, iface.ID, iface.PrivateIP, iface.SubnetID, iface.MACAddress})
		}
		t.Render()
	}

	printMap(w, "Tag", s.Tags)
	printMap(w, "Stack Data", s.StackData)
}

func formatWhen(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.UTC().Format("2006-01-02 15:04:05"), utils.FormatAge(t))
}

func printMap(w io.Writer, title string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintln(w)
	t := newTable(w)
	t.AppendHeader(table.Row{title, "Value"})
	for _, k := range utils.SortedKeys(m) {
		t.AppendRow(table.Row{k, m[k]})
	}
	t.SetCaption("%d entries", len(m))
	t.Render()
}
