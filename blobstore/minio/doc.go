// Package minio stores grids in MinIO and other S3-compatible object
// stores (Ceph, Garage, SeaweedFS) through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "pdf-fits", "grids/")
//	err = pinegrid.Save(ctx, store, "dy.pgrd.lz4", g)
//
// Reads are ranged GETs; Create streams uploads of unknown length.
package minio
