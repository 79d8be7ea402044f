// Package appointmentv1 is the gRPC contract of the appointment service.
//
// Messages are google.protobuf.Struct documents; field names are snake_case,
// ids are UUID strings and instants are RFC 3339 strings.
package appointmentv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "evservice.appointment.v1.AppointmentService"

const (
	MethodCreateAppointment     = "CreateAppointment"
	MethodGetAppointment        = "GetAppointment"
	MethodListHistory           = "ListHistory"
	MethodTransitionAppointment = "TransitionAppointment"
	MethodAssignTechnician      = "AssignTechnician"
	MethodRankTechnicians       = "RankTechnicians"
	MethodCancellationPolicy    = "GetCancellationPolicy"
	MethodRequestCancellation   = "RequestCancellation"
	MethodApproveCancellation   = "ApproveCancellation"
	MethodProcessRefund         = "ProcessRefund"
	MethodReportPartsShortage   = "ReportPartsShortage"
	MethodHandlePartsDecision   = "HandlePartsDecision"
	MethodGenerateSlots         = "GenerateSlots"
	MethodStartDepositPayment   = "StartDepositPayment"
	MethodConfirmDepositPayment = "ConfirmDepositPayment"
)

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type AppointmentServiceServer interface {
	CreateAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TransitionAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AssignTechnician(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RankTechnicians(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCancellationPolicy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestCancellation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApproveCancellation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessRefund(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReportPartsShortage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HandlePartsDecision(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartDepositPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmDepositPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAppointmentServiceServer can be embedded to stay forward compatible.
type UnimplementedAppointmentServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedAppointmentServiceServer) CreateAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodCreateAppointment)
}
func (UnimplementedAppointmentServiceServer) GetAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetAppointment)
}
func (UnimplementedAppointmentServiceServer) ListHistory(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodListHistory)
}
func (UnimplementedAppointmentServiceServer) TransitionAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodTransitionAppointment)
}
func (UnimplementedAppointmentServiceServer) AssignTechnician(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodAssignTechnician)
}
func (UnimplementedAppointmentServiceServer) RankTechnicians(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRankTechnicians)
}
func (UnimplementedAppointmentServiceServer) GetCancellationPolicy(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodCancellationPolicy)
}
func (UnimplementedAppointmentServiceServer) RequestCancellation(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRequestCancellation)
}
func (UnimplementedAppointmentServiceServer) ApproveCancellation(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodApproveCancellation)
}
func (UnimplementedAppointmentServiceServer) ProcessRefund(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodProcessRefund)
}
func (UnimplementedAppointmentServiceServer) ReportPartsShortage(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodReportPartsShortage)
}
func (UnimplementedAppointmentServiceServer) HandlePartsDecision(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodHandlePartsDecision)
}
func (UnimplementedAppointmentServiceServer) GenerateSlots(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGenerateSlots)
}
func (UnimplementedAppointmentServiceServer) StartDepositPayment(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodStartDepositPayment)
}
func (UnimplementedAppointmentServiceServer) ConfirmDepositPayment(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodConfirmDepositPayment)
}

type call func(AppointmentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, fn call) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(AppointmentServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(AppointmentServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AppointmentService_ServiceDesc describes the service for grpc.ServiceRegistrar.
var AppointmentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AppointmentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodCreateAppointment, AppointmentServiceServer.CreateAppointment),
		method(MethodGetAppointment, AppointmentServiceServer.GetAppointment),
		method(MethodListHistory, AppointmentServiceServer.ListHistory),
		method(MethodTransitionAppointment, AppointmentServiceServer.TransitionAppointment),
		method(MethodAssignTechnician, AppointmentServiceServer.AssignTechnician),
		method(MethodRankTechnicians, AppointmentServiceServer.RankTechnicians),
		method(MethodCancellationPolicy, AppointmentServiceServer.GetCancellationPolicy),
		method(MethodRequestCancellation, AppointmentServiceServer.RequestCancellation),
		method(MethodApproveCancellation, AppointmentServiceServer.ApproveCancellation),
		method(MethodProcessRefund, AppointmentServiceServer.ProcessRefund),
		method(MethodReportPartsShortage, AppointmentServiceServer.ReportPartsShortage),
		method(MethodHandlePartsDecision, AppointmentServiceServer.HandlePartsDecision),
		method(MethodGenerateSlots, AppointmentServiceServer.GenerateSlots),
		method(MethodStartDepositPayment, AppointmentServiceServer.StartDepositPayment),
		method(MethodConfirmDepositPayment, AppointmentServiceServer.ConfirmDepositPayment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "evservice/appointment/v1/appointment.proto",
}

func RegisterAppointmentServiceServer(s grpc.ServiceRegistrar, srv AppointmentServiceServer) {
	s.RegisterService(&AppointmentService_ServiceDesc, srv)
}

// AppointmentServiceClient calls the service by method name.
type AppointmentServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAppointmentServiceClient(cc grpc.ClientConnInterface) *AppointmentServiceClient {
	return &AppointmentServiceClient{cc: cc}
}

// Call invokes method with req.
func (c *AppointmentServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
