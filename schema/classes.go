package schema

import "github.com/poiesic/ifcingest/core"

// Instantiable IfcProduct subtypes, by schema. Abstract supertypes never
// appear in a DATA section and are omitted.
var (
	sharedProducts = []string{
		// spatial structure
		"IFCSITE", "IFCBUILDING", "IFCBUILDINGSTOREY", "IFCSPACE",

		// building elements
		"IFCBEAM", "IFCBUILDINGELEMENTPART", "IFCBUILDINGELEMENTPROXY", "IFCCOLUMN",
		"IFCCOVERING", "IFCCURTAINWALL", "IFCDOOR", "IFCFOOTING", "IFCMEMBER",
		"IFCPILE", "IFCPLATE", "IFCRAILING", "IFCRAMP", "IFCRAMPFLIGHT", "IFCROOF",
		"IFCSLAB", "IFCSTAIR", "IFCSTAIRFLIGHT", "IFCWALL", "IFCWALLSTANDARDCASE",
		"IFCWINDOW",

		// components and assemblies
		"IFCDISCRETEACCESSORY", "IFCELEMENTASSEMBLY", "IFCFASTENER",
		"IFCMECHANICALFASTENER", "IFCREINFORCINGBAR", "IFCREINFORCINGMESH",
		"IFCTENDON", "IFCTENDONANCHOR", "IFCFURNISHINGELEMENT",
		"IFCTRANSPORTELEMENT", "IFCVIRTUALELEMENT",

		// features
		"IFCOPENINGELEMENT", "IFCPROJECTIONELEMENT",

		// distribution
		"IFCDISTRIBUTIONELEMENT", "IFCDISTRIBUTIONFLOWELEMENT",
		"IFCDISTRIBUTIONCONTROLELEMENT", "IFCDISTRIBUTIONCHAMBERELEMENT",
		"IFCDISTRIBUTIONPORT", "IFCENERGYCONVERSIONDEVICE", "IFCFLOWCONTROLLER",
		"IFCFLOWFITTING", "IFCFLOWMOVINGDEVICE", "IFCFLOWSEGMENT",
		"IFCFLOWSTORAGEDEVICE", "IFCFLOWTERMINAL", "IFCFLOWTREATMENTDEVICE",

		// structural analysis
		"IFCSTRUCTURALCURVEMEMBER", "IFCSTRUCTURALCURVEMEMBERVARYING",
		"IFCSTRUCTURALSURFACEMEMBER", "IFCSTRUCTURALSURFACEMEMBERVARYING",
		"IFCSTRUCTURALPOINTCONNECTION", "IFCSTRUCTURALCURVECONNECTION",
		"IFCSTRUCTURALSURFACECONNECTION", "IFCSTRUCTURALPOINTACTION",
		"IFCSTRUCTURALLINEARACTION", "IFCSTRUCTURALPLANARACTION",
		"IFCSTRUCTURALPOINTREACTION",

		// other
		"IFCANNOTATION", "IFCGRID", "IFCPROXY",
	}

	legacyOnlyProducts = []string{
		"IFCELECTRICALELEMENT", "IFCEQUIPMENTELEMENT", "IFCELECTRICDISTRIBUTIONPOINT",
		"IFCCHAMFEREDGEFEATURE", "IFCROUNDEDEDGEFEATURE", "IFCEDGEFEATURE",
		"IFCSTRUCTURALLINEARACTIONVARYING", "IFCSTRUCTURALPLANARACTIONVARYING",
	}

	currentOnlyProducts = []string{
		// spatial structure
		"IFCEXTERNALSPATIALELEMENT", "IFCSPATIALZONE",

		// building elements
		"IFCCHIMNEY", "IFCSHADINGDEVICE", "IFCCIVILELEMENT", "IFCGEOGRAPHICELEMENT",
		"IFCBEAMSTANDARDCASE", "IFCCOLUMNSTANDARDCASE", "IFCMEMBERSTANDARDCASE",
		"IFCPLATESTANDARDCASE", "IFCSLABSTANDARDCASE", "IFCSLABELEMENTEDCASE",
		"IFCWALLELEMENTEDCASE", "IFCDOORSTANDARDCASE", "IFCWINDOWSTANDARDCASE",
		"IFCFURNITURE", "IFCSYSTEMFURNITUREELEMENT", "IFCVIBRATIONISOLATOR",

		// features
		"IFCOPENINGSTANDARDCASE", "IFCSURFACEFEATURE", "IFCVOIDINGFEATURE",

		// distribution
		"IFCACTUATOR", "IFCAIRTERMINAL", "IFCAIRTERMINALBOX", "IFCAIRTOAIRHEATRECOVERY",
		"IFCALARM", "IFCAUDIOVISUALAPPLIANCE", "IFCBOILER", "IFCBURNER",
		"IFCCABLECARRIERFITTING", "IFCCABLECARRIERSEGMENT", "IFCCABLEFITTING",
		"IFCCABLESEGMENT", "IFCCHILLER", "IFCCOIL", "IFCCOMMUNICATIONSAPPLIANCE",
		"IFCCOMPRESSOR", "IFCCONDENSER", "IFCCONTROLLER", "IFCCOOLEDBEAM",
		"IFCCOOLINGTOWER", "IFCDAMPER", "IFCDUCTFITTING", "IFCDUCTSEGMENT",
		"IFCDUCTSILENCER", "IFCELECTRICAPPLIANCE", "IFCELECTRICDISTRIBUTIONBOARD",
		"IFCELECTRICFLOWSTORAGEDEVICE", "IFCELECTRICGENERATOR", "IFCELECTRICMOTOR",
		"IFCELECTRICTIMECONTROL", "IFCENGINE", "IFCEVAPORATIVECOOLER", "IFCEVAPORATOR",
		"IFCFAN", "IFCFILTER", "IFCFIRESUPPRESSIONTERMINAL", "IFCFLOWINSTRUMENT",
		"IFCFLOWMETER", "IFCHEATEXCHANGER", "IFCHUMIDIFIER", "IFCINTERCEPTOR",
		"IFCJUNCTIONBOX", "IFCLAMP", "IFCLIGHTFIXTURE", "IFCMEDICALDEVICE",
		"IFCMOTORCONNECTION", "IFCOUTLET", "IFCPIPEFITTING", "IFCPIPESEGMENT",
		"IFCPROTECTIVEDEVICE", "IFCPROTECTIVEDEVICETRIPPINGUNIT", "IFCPUMP",
		"IFCSANITARYTERMINAL", "IFCSENSOR", "IFCSOLARDEVICE", "IFCSPACEHEATER",
		"IFCSTACKTERMINAL", "IFCSWITCHINGDEVICE", "IFCTANK", "IFCTRANSFORMER",
		"IFCTUBEBUNDLE", "IFCUNITARYCONTROLELEMENT", "IFCUNITARYEQUIPMENT",
		"IFCVALVE", "IFCWASTETERMINAL",

		// structural analysis
		"IFCSTRUCTURALCURVEACTION", "IFCSTRUCTURALSURFACEACTION",
		"IFCSTRUCTURALCURVEREACTION", "IFCSTRUCTURALSURFACEREACTION",
	}
)

var productClasses = map[core.SchemaVariant]map[string]struct{}{
	core.VariantLegacy:  classSet(sharedProducts, legacyOnlyProducts),
	core.VariantCurrent: classSet(sharedProducts, currentOnlyProducts),
}

func classSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, name := range list {
			set[name] = struct{}{}
		}
	}
	return set
}

// IsProduct reports whether typeName is an IfcProduct class of variant v.
// typeName must be upper case, as decoded from a STEP file.
func IsProduct(v core.SchemaVariant, typeName string) bool {
	_, ok := productClasses[v][typeName]
	return ok
}
