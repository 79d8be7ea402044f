package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/scheduling"
)

const dateLayout = "2006-01-02"

func invalidArg(field, format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, "%s: %s", field, fmt.Sprintf(format, args...))
}

func getString(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func getBool(req *structpb.Struct, key string) bool {
	return req.GetFields()[key].GetBoolValue()
}

func getInt(req *structpb.Struct, key string) int {
	return int(req.GetFields()[key].GetNumberValue())
}

func requireUUID(req *structpb.Struct, key string) (uuid.UUID, error) {
	raw := getString(req, key)
	if raw == "" {
		return uuid.Nil, invalidArg(key, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalidArg(key, "not a uuid")
	}
	return id, nil
}

func optionalUUID(req *structpb.Struct, key string) (*uuid.UUID, error) {
	if getString(req, key) == "" {
		return nil, nil
	}
	id, err := requireUUID(req, key)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func uuidList(req *structpb.Struct, key string) ([]uuid.UUID, error) {
	values := req.GetFields()[key].GetListValue().GetValues()
	ids := make([]uuid.UUID, 0, len(values))
	for i, v := range values {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return nil, invalidArg(key, "item %d is not a uuid", i)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// optionalTime accepts RFC 3339 timestamps and plain dates.
func optionalTime(req *structpb.Struct, key string) (*time.Time, error) {
	raw := getString(req, key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalidArg(key, "expected RFC 3339 time or YYYY-MM-DD")
	}
	return &t, nil
}

func partLines(req *structpb.Struct, key string) ([]model.PartLine, error) {
	values := req.GetFields()[key].GetListValue().GetValues()
	lines := make([]model.PartLine, 0, len(values))
	for i, v := range values {
		item := v.GetStructValue()
		if item == nil {
			return nil, invalidArg(key, "item %d is not an object", i)
		}
		lines = append(lines, model.PartLine{
			PartNumber:   getString(item, "part_number"),
			Name:         getString(item, "name"),
			RequiredQty:  getInt(item, "required_qty"),
			AvailableQty: getInt(item, "available_qty"),
		})
	}
	return lines, nil
}

func decodeCreateInput(req *structpb.Struct) (CreateAppointmentInput, error) {
	in := CreateAppointmentInput{
		ScheduledTime: getString(req, "scheduled_time"),
		AutoAssign:    getBool(req, "auto_assign"),
		Priority:      model.Priority(getString(req, "priority")),
		Notes:         getString(req, "notes"),
		Prepaid:       getBool(req, "prepaid"),
		PaymentRef:    getString(req, "payment_ref"),
	}

	var err error
	if customer, err := optionalUUID(req, "customer_id"); err != nil {
		return in, err
	} else if customer != nil {
		in.CustomerID = *customer
	}
	if in.VehicleID, err = requireUUID(req, "vehicle_id"); err != nil {
		return in, err
	}
	if in.TechnicianID, err = optionalUUID(req, "technician_id"); err != nil {
		return in, err
	}

	date, err := optionalTime(req, "scheduled_date")
	if err != nil {
		return in, err
	}
	if date == nil {
		return in, invalidArg("scheduled_date", "is required")
	}
	in.ScheduledDate = *date

	for i, v := range req.GetFields()["services"].GetListValue().GetValues() {
		item := v.GetStructValue()
		id, err := uuid.Parse(getString(item, "service_id"))
		if err != nil {
			return in, invalidArg("services", "item %d has no valid service_id", i)
		}
		in.Services = append(in.Services, ServiceLine{ServiceID: id, Quantity: getInt(item, "quantity")})
	}
	return in, nil
}

func decodeGenerateSlots(req *structpb.Struct) (GenerateSlotsInput, error) {
	in := GenerateSlotsInput{
		From:          getString(req, "from"),
		To:            getString(req, "to"),
		SlotLength:    time.Duration(getInt(req, "slot_minutes")) * time.Minute,
		Capacity:      getInt(req, "capacity"),
		PerTechnician: getInt(req, "per_technician"),
	}
	date, err := optionalTime(req, "date")
	if err != nil {
		return in, err
	}
	if date == nil {
		return in, invalidArg("date", "is required")
	}
	in.Date = *date
	if in.TechnicianIDs, err = uuidList(req, "technician_ids"); err != nil {
		return in, err
	}
	return in, nil
}

func encode(doc map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func formatUUIDPtr(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func appointmentDoc(a *model.Appointment) map[string]any {
	services := make([]any, 0, len(a.Services))
	for _, line := range a.Services {
		services = append(services, map[string]any{
			"service_id":   line.ServiceID.String(),
			"quantity":     line.Quantity,
			"price":        line.Price,
			"duration_min": line.DurationMin,
		})
	}

	doc := map[string]any{
		"id":                   a.ID.String(),
		"appointment_number":   a.AppointmentNumber,
		"customer_id":          a.CustomerID.String(),
		"vehicle_id":           a.VehicleID.String(),
		"technician_id":        formatUUIDPtr(a.TechnicianID),
		"slot_id":              formatUUIDPtr(a.SlotID),
		"scheduled_time":       a.ScheduledTime,
		"scheduled_start":      formatTime(a.ScheduledStart),
		"estimated_completion": formatTime(a.EstimatedCompletion),
		"actual_start":         formatTimePtr(a.ActualStart),
		"actual_completion":    formatTimePtr(a.ActualCompletion),
		"status":               string(a.Status),
		"priority":             string(a.Priority),
		"version":              a.Version,
		"total_amount":         a.TotalAmount,
		"deposit_paid":         a.DepositPaid,
		"services":             services,
	}
	if a.CancelRequest.RequestedAt != nil {
		doc["cancel_request"] = map[string]any{
			"reason":              a.CancelRequest.Reason,
			"requested_at":        formatTimePtr(a.CancelRequest.RequestedAt),
			"refund_percentage":   a.CancelRequest.RefundPercentage,
			"refund_amount":       a.CancelRequest.RefundAmount,
			"approved_at":         formatTimePtr(a.CancelRequest.ApprovedAt),
			"refund_processed_at": formatTimePtr(a.CancelRequest.RefundProcessedAt),
		}
	}
	if a.PartsShortage.ReportedAt != nil {
		doc["parts_shortage"] = map[string]any{
			"reported_at":       formatTimePtr(a.PartsShortage.ReportedAt),
			"estimated_arrival": formatTimePtr(a.PartsShortage.EstimatedPartsArrival),
		}
	}
	if a.Reschedule.RescheduledTo != nil {
		doc["reschedule"] = map[string]any{
			"rescheduled_to":  formatTimePtr(a.Reschedule.RescheduledTo),
			"customer_agreed": a.Reschedule.CustomerAgreed,
		}
	}
	return doc
}

func eventDoc(ev model.WorkflowEvent) map[string]any {
	return map[string]any{
		"sequence":        ev.Sequence,
		"from_status":     string(ev.FromStatus),
		"to_status":       string(ev.ToStatus),
		"changed_by":      ev.ChangedBy.String(),
		"changed_by_role": string(ev.ChangedByRole),
		"changed_at":      formatTime(ev.ChangedAt),
		"reason":          ev.Reason,
		"notes":           ev.Notes,
	}
}

func candidateDoc(c scheduling.Candidate) map[string]any {
	return map[string]any{
		"technician_id": c.Technician.ID.String(),
		"display_name":  c.Technician.DisplayName,
		"score": map[string]any{
			"skill":        c.Score.Skill,
			"workload":     c.Score.Workload,
			"performance":  c.Score.Performance,
			"availability": c.Score.Availability,
			"total":        c.Score.Total,
		},
	}
}

func slotDoc(s *model.Slot) map[string]any {
	roster := make([]any, 0, len(s.Technicians))
	for _, t := range s.Technicians {
		roster = append(roster, map[string]any{
			"technician_id":    t.TechnicianID.String(),
			"current_workload": t.CurrentWorkload,
			"max_capacity":     t.MaxCapacity,
		})
	}
	return map[string]any{
		"id":           s.ID.String(),
		"start_time":   formatTime(s.StartTime),
		"end_time":     formatTime(s.EndTime),
		"capacity":     s.Capacity,
		"booked_count": s.BookedCount,
		"status":       string(s.Status),
		"technicians":  roster,
	}
}
