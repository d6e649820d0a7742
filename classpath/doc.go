// Package classpath resolves class names against an ordered list of class
// repositories and loads the results into a glr.Loader.
//
//	loader, _ := glr.New()
//	cp := classpath.New(loader, blobstore.NewLocalStore("classes"))
//	if err := cp.LoadArchives(ctx); err != nil {
//	    return err
//	}
//	c, err := cp.Require(ctx, "Main")
//
// A class named N is stored as the blob N+".glr". Archives (*.glra) added to
// the class path are searched before the plain repositories, in the order
// they were added.
//
// A ClassPath is safe for concurrent use; loads into the underlying Loader
// are serialized.
package classpath
