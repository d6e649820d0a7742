// Package s3 provides an S3 class repository implementing blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.NewDefaultStore(ctx, "my-bucket", "classes/")
//	if err != nil {
//	    return err
//	}
//	cp := classpath.New(loader, store)
//
// # Features
//
//   - Range reads for partial fetches
//   - Managed (multipart) uploads through manager.Uploader
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
