package graph

import (
	"github.com/andreyvit/graphdata"
)

// Schema holds every kind defined by this package.
var Schema = graphdata.NewSchema()

var (
	NodeIDKind   = graphdata.Define(Schema, "jvm.node", readNodeID)
	ModuleIDKind = graphdata.Define(Schema, "jvm.module", readModuleID)

	ClassUsageKind      = graphdata.Define(Schema, "usage.class", readClassUsage)
	ClassNewUsageKind   = graphdata.Define(Schema, "usage.class-new", readClassNewUsage)
	ModuleUsageKind     = graphdata.Define(Schema, "usage.module", readModuleUsage)
	AnnotationUsageKind = graphdata.Define(Schema, "usage.annotation", readAnnotationUsage)

	MethodUsageKind             = graphdata.DefineFactored(Schema, "usage.method", readMethodUsage)
	FieldUsageKind              = graphdata.DefineFactored(Schema, "usage.field", readFieldUsage)
	FieldAssignUsageKind        = graphdata.DefineFactored(Schema, "usage.field-assign", readFieldAssignUsage)
	ImportStaticMemberUsageKind = graphdata.DefineFactored(Schema, "usage.import-static", readImportStaticMemberUsage)
	LookupNameUsageKind         = graphdata.DefineFactored(Schema, "usage.lookup-name", readLookupNameUsage)

	FileSourceKind = graphdata.Define(Schema, "graph.source", readFileSource)
	EdgeKind       = graphdata.DefineFactored(Schema, "graph.edge", readEdge)
	ClassNodeKind  = graphdata.Define(Schema, "graph.class", readClassNode)
)
