package advisor

var CtxWithLogger = ctxWithLogger
