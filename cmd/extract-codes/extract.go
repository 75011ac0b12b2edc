package main

import (
	"context"
	"flag"
	"time"

	"k8s.io/klog/v2"

	"github.com/richiMarchi/netlab/pkg/codes"
	"github.com/richiMarchi/netlab/pkg/portal"
)

func main() {
	name := flag.String("name", "", "first name as registered on the portal")
	surname := flag.String("surname", "", "last name as registered on the portal")
	id := flag.String("id", "", "student id")
	out := flag.String("out", codes.DefaultFile, "file to store the extracted codes")
	loginURL := flag.String("login-url", portal.DefaultLoginURL, "portal login page")
	codesURL := flag.String("codes-url", portal.DefaultCodesURL, "portal project page")
	timeout := flag.Duration("timeout", 0, "HTTP timeout, 0 for none")
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if *name == "" || *surname == "" || *id == "" {
		klog.Fatal("name, surname and id are required")
	}

	ex := portal.New(portal.Credentials{FirstName: *name, LastName: *surname, ID: *id})
	ex.LoginURL = *loginURL
	ex.CodesURL = *codesURL
	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
		ex.Client.Timeout = *timeout
	}

	start := time.Now()
	c, err := ex.Extract(ctx)
	if err != nil {
		klog.Fatal(err)
	}
	if err := codes.Save(*out, c); err != nil {
		klog.Fatal(err)
	}
	for k, v := range c.Map() {
		klog.V(2).Infof("%s: %s", k, v)
	}
	klog.Infof("Codes written to %s in %v", *out, time.Since(start).Round(time.Millisecond))
}
