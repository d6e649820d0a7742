// Package minio provides a class repository backed by MinIO and other
// S3-compatible object stores (Ceph, Garage, SeaweedFS).
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "classes/")
//	cp := classpath.New(loader, store)
//
// Unlike blobstore/s3 this package does not depend on the AWS SDK.
package minio
