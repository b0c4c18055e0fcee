// Package blob provides handles for the storage account, its containers and
// their blobs, all sending through a pipeline.Pipeline.
//
// Handles are small immutable values. WithPipeline returns a copy bound to a
// different pipeline, which is how callers add policies such as a fault
// injector without touching the pipeline other callers share:
//
//	p, err := blob.NewPipeline(cred, blob.PipelineOptions{})
//	svc, err := blob.NewServiceURL("https://acct.blob.example.net", p)
//	faulty := svc.WithPipeline(p.With(injector.Factory()))
//
// Listings are exposed both one segment at a time (ListContainersSegment,
// ListBlobsFlatSegment) and as paging.Pager values (ListContainers,
// ListBlobs).
package blob
