package glr_test

import (
	"fmt"
	"log"

	"github.com/hupe1980/glr"
	"github.com/hupe1980/glr/classfile"
)

func exampleLayout() glr.Layout {
	l := glr.FloatingLayout()
	l.Metadata.Reserve = 4 << 20
	l.Symbols.Reserve = 1 << 20
	l.Code.Reserve = 1 << 20
	return l
}

// Example_loadClass builds a class file, loads it and looks it up by name.
func Example_loadClass() {
	b := classfile.NewBuilder(classfile.Struct, "Point")
	i64 := b.String("i64")
	b.StructField(b.String("x"), i64).
		StructField(b.String("y"), i64).
		Method(b.String("len"), classfile.Public, 0).
		Code([]byte{0x01, 0x02, 0x03})
	data, err := b.Bytes()
	if err != nil {
		log.Fatal(err)
	}

	loader, err := glr.New(glr.WithLayout(exampleLayout()), glr.WithHeapArenas())
	if err != nil {
		log.Fatal(err)
	}
	defer loader.Close()

	if _, err := loader.LoadClass(data); err != nil {
		log.Fatal(err)
	}

	point, ok := loader.Find("Point")
	fmt.Println(point, ok)

	x, _ := point.File().Field("x")
	fmt.Println(x)

	m, _ := point.File().Method("len")
	fmt.Println(m.Name(), m.Access(), len(m.Code()))
	// Output:
	// struct Point true
	// x i64
	// len public 3
}

// Example_duplicateClass shows that a name can only be loaded once.
func Example_duplicateClass() {
	loader, err := glr.New(glr.WithLayout(exampleLayout()), glr.WithHeapArenas())
	if err != nil {
		log.Fatal(err)
	}
	defer loader.Close()

	data, _ := classfile.NewBuilder(classfile.Module, "main").Bytes()
	_, err = loader.LoadClass(data)
	fmt.Println(err)
	_, err = loader.LoadClass(data)
	fmt.Println(err)
	// Output:
	// <nil>
	// class "main": duplicate class
}
