package channel

import (
	"context"

	"google.golang.org/grpc"

	"github.com/blockberries/tenderberry/wire"
)

// ServiceName is the fully qualified gRPC service the engine dials.
const ServiceName = "abci.ABCIApplication"

// abciApplicationServiceDesc is the hand-written service descriptor. There
// is no generated code; every method decodes a request union with the wire
// codec and dispatches to the channel.
var abciApplicationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ABCIApplicationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Echo", Handler: echoHandler},
		{MethodName: "Flush", Handler: flushHandler},
		{MethodName: "Info", Handler: infoHandler},
		{MethodName: "SetOption", Handler: setOptionHandler},
		{MethodName: "InitChain", Handler: initChainHandler},
		{MethodName: "Query", Handler: queryHandler},
		{MethodName: "BeginBlock", Handler: beginBlockHandler},
		{MethodName: "CheckTx", Handler: checkTxHandler},
		{MethodName: "DeliverTx", Handler: deliverTxHandler},
		{MethodName: "EndBlock", Handler: endBlockHandler},
		{MethodName: "Commit", Handler: commitHandler},
		{MethodName: "ListSnapshots", Handler: listSnapshotsHandler},
		{MethodName: "OfferSnapshot", Handler: offerSnapshotHandler},
		{MethodName: "LoadSnapshotChunk", Handler: loadSnapshotChunkHandler},
		{MethodName: "ApplySnapshotChunk", Handler: applySnapshotChunkHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "abci.proto",
}

type unaryMethod func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error)

// unaryHandler builds the grpc.MethodDesc handler for one service method.
func unaryHandler(fullMethod string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(wire.Request)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ABCIApplicationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ABCIApplicationServer), ctx, req.(*wire.Request))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	echoHandler = unaryHandler("/abci.ABCIApplication/Echo",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.Echo(ctx, req)
		})
	flushHandler = unaryHandler("/abci.ABCIApplication/Flush",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.Flush(ctx, req)
		})
	infoHandler = unaryHandler("/abci.ABCIApplication/Info",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.Info(ctx, req)
		})
	setOptionHandler = unaryHandler("/abci.ABCIApplication/SetOption",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.SetOption(ctx, req)
		})
	initChainHandler = unaryHandler("/abci.ABCIApplication/InitChain",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.InitChain(ctx, req)
		})
	queryHandler = unaryHandler("/abci.ABCIApplication/Query",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.Query(ctx, req)
		})
	beginBlockHandler = unaryHandler("/abci.ABCIApplication/BeginBlock",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.BeginBlock(ctx, req)
		})
	checkTxHandler = unaryHandler("/abci.ABCIApplication/CheckTx",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.CheckTx(ctx, req)
		})
	deliverTxHandler = unaryHandler("/abci.ABCIApplication/DeliverTx",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.DeliverTx(ctx, req)
		})
	endBlockHandler = unaryHandler("/abci.ABCIApplication/EndBlock",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.EndBlock(ctx, req)
		})
	commitHandler = unaryHandler("/abci.ABCIApplication/Commit",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.Commit(ctx, req)
		})
	listSnapshotsHandler = unaryHandler("/abci.ABCIApplication/ListSnapshots",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.ListSnapshots(ctx, req)
		})
	offerSnapshotHandler = unaryHandler("/abci.ABCIApplication/OfferSnapshot",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.OfferSnapshot(ctx, req)
		})
	loadSnapshotChunkHandler = unaryHandler("/abci.ABCIApplication/LoadSnapshotChunk",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.LoadSnapshotChunk(ctx, req)
		})
	applySnapshotChunkHandler = unaryHandler("/abci.ABCIApplication/ApplySnapshotChunk",
		func(srv ABCIApplicationServer, ctx context.Context, req *wire.Request) (*wire.Response, error) {
			return srv.ApplySnapshotChunk(ctx, req)
		})
)
